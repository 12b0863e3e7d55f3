package structcodec

import (
	"io"

	"voxelstruct/internal/nbt"
	"voxelstruct/internal/structure"
)

// Write serializes s and encodes it to w inside the given envelope.
func Write(w io.Writer, s structure.Structure, opts EncodeOptions, c nbt.Compression) error {
	root, err := Serialize(s, opts)
	if err != nil {
		return err
	}
	return nbt.Write(w, root, c)
}

// Read decodes a document from r, detecting its envelope, and rebuilds the
// structure. Malformed bytes surface as *nbt.FormatError.
func Read(r io.Reader, opts DecodeOptions) (*Document, nbt.Compression, error) {
	root, c, err := nbt.Read(r)
	if err != nil {
		return nil, c, err
	}
	doc, err := Deserialize(root, opts)
	return doc, c, err
}
