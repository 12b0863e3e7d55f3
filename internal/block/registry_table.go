package block

// builtinLegacy lists well-known pre-flattening ids. Stateful entries come
// before their stateless fallback so the stateful key wins the reverse map.
var builtinLegacy = []struct {
	key      string
	id, data byte
}{
	{"minecraft:stone", 1, 0},
	{"minecraft:granite", 1, 1},
	{"minecraft:polished_granite", 1, 2},
	{"minecraft:diorite", 1, 3},
	{"minecraft:polished_diorite", 1, 4},
	{"minecraft:andesite", 1, 5},
	{"minecraft:polished_andesite", 1, 6},
	{"minecraft:grass_block[snowy=false]", 2, 0},
	{"minecraft:grass_block", 2, 0},
	{"minecraft:dirt", 3, 0},
	{"minecraft:coarse_dirt", 3, 1},
	{"minecraft:podzol[snowy=false]", 3, 2},
	{"minecraft:cobblestone", 4, 0},
	{"minecraft:oak_planks", 5, 0},
	{"minecraft:spruce_planks", 5, 1},
	{"minecraft:birch_planks", 5, 2},
	{"minecraft:jungle_planks", 5, 3},
	{"minecraft:acacia_planks", 5, 4},
	{"minecraft:dark_oak_planks", 5, 5},
	{"minecraft:bedrock", 7, 0},
	{"minecraft:water[level=0]", 9, 0},
	{"minecraft:water", 9, 0},
	{"minecraft:lava[level=0]", 11, 0},
	{"minecraft:lava", 11, 0},
	{"minecraft:sand", 12, 0},
	{"minecraft:red_sand", 12, 1},
	{"minecraft:gravel", 13, 0},
	{"minecraft:gold_ore", 14, 0},
	{"minecraft:iron_ore", 15, 0},
	{"minecraft:coal_ore", 16, 0},
	{"minecraft:oak_log[axis=y]", 17, 0},
	{"minecraft:spruce_log[axis=y]", 17, 1},
	{"minecraft:birch_log[axis=y]", 17, 2},
	{"minecraft:jungle_log[axis=y]", 17, 3},
	{"minecraft:oak_log[axis=x]", 17, 4},
	{"minecraft:spruce_log[axis=x]", 17, 5},
	{"minecraft:birch_log[axis=x]", 17, 6},
	{"minecraft:jungle_log[axis=x]", 17, 7},
	{"minecraft:oak_log[axis=z]", 17, 8},
	{"minecraft:spruce_log[axis=z]", 17, 9},
	{"minecraft:birch_log[axis=z]", 17, 10},
	{"minecraft:jungle_log[axis=z]", 17, 11},
	{"minecraft:oak_log", 17, 0},
	{"minecraft:spruce_log", 17, 1},
	{"minecraft:birch_log", 17, 2},
	{"minecraft:jungle_log", 17, 3},
	{"minecraft:glass", 20, 0},
	{"minecraft:sandstone", 24, 0},
	{"minecraft:white_wool", 35, 0},
	{"minecraft:orange_wool", 35, 1},
	{"minecraft:magenta_wool", 35, 2},
	{"minecraft:light_blue_wool", 35, 3},
	{"minecraft:yellow_wool", 35, 4},
	{"minecraft:lime_wool", 35, 5},
	{"minecraft:pink_wool", 35, 6},
	{"minecraft:gray_wool", 35, 7},
	{"minecraft:light_gray_wool", 35, 8},
	{"minecraft:cyan_wool", 35, 9},
	{"minecraft:purple_wool", 35, 10},
	{"minecraft:blue_wool", 35, 11},
	{"minecraft:brown_wool", 35, 12},
	{"minecraft:green_wool", 35, 13},
	{"minecraft:red_wool", 35, 14},
	{"minecraft:black_wool", 35, 15},
	{"minecraft:gold_block", 41, 0},
	{"minecraft:iron_block", 42, 0},
	{"minecraft:bricks", 45, 0},
	{"minecraft:tnt", 46, 0},
	{"minecraft:bookshelf", 47, 0},
	{"minecraft:mossy_cobblestone", 48, 0},
	{"minecraft:obsidian", 49, 0},
	{"minecraft:diamond_ore", 56, 0},
	{"minecraft:diamond_block", 57, 0},
	{"minecraft:crafting_table", 58, 0},
	{"minecraft:furnace[facing=north,lit=false]", 61, 2},
	{"minecraft:furnace[facing=south,lit=false]", 61, 3},
	{"minecraft:furnace[facing=west,lit=false]", 61, 4},
	{"minecraft:furnace[facing=east,lit=false]", 61, 5},
	{"minecraft:furnace", 61, 2},
	{"minecraft:snow_block", 80, 0},
	{"minecraft:ice", 79, 0},
	{"minecraft:clay", 82, 0},
	{"minecraft:netherrack", 87, 0},
	{"minecraft:glowstone", 89, 0},
	{"minecraft:stone_bricks", 98, 0},
	{"minecraft:emerald_block", 133, 0},
	{"minecraft:quartz_block", 155, 0},
}

// DefaultRegistry returns a registry preloaded with the built-in table.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, e := range builtinLegacy {
		if err := r.Register(MustParse(e.key), Legacy{ID: e.id, Data: e.data}); err != nil {
			panic(err)
		}
	}
	return r
}
