// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package game

// Special name prefixes by id. Ids start at 1; 0 means none.
var beastNamePrefixes = []string{
	"", "Agony", "Apocalypse", "Armageddon", "Beast", "Behemoth", "Blight", "Blood", "Bramble",
	"Brimstone", "Brood", "Carrion", "Cataclysm", "Chimeric", "Corpse", "Corruption", "Damnation",
	"Death", "Demon", "Dire", "Dragon", "Dread", "Doom", "Dusk", "Eagle", "Empyrean", "Fate", "Foe",
	"Gale", "Ghoul", "Gloom", "Glyph", "Golem", "Grim", "Hate", "Havoc", "Honour", "Horror",
	"Hypnotic", "Kraken", "Loath", "Maelstrom", "Mind", "Miracle", "Morbid", "Oblivion", "Onslaught",
	"Pain", "Pandemonium", "Phoenix", "Plague", "Rage", "Rapture", "Rune", "Skull", "Sol", "Soul",
	"Sorrow", "Spirit", "Storm", "Tempest", "Torment", "Vengeance", "Victory", "Viper", "Vortex",
	"Woe", "Wrath", "Lights", "Shimmering",
}

// Special name suffixes by id.
var beastNameSuffixes = []string{
	"", "Bane", "Root", "Bite", "Song", "Roar", "Grasp", "Instrument", "Glow", "Bender", "Shadow",
	"Whisper", "Shout", "Growl", "Tear", "Peak", "Form", "Sun", "Moon",
}

// PrefixID returns the id of a special name prefix, or 0.
func PrefixID(name string) uint8 { return nameID(beastNamePrefixes, name) }

// SuffixID returns the id of a special name suffix, or 0.
func SuffixID(name string) uint8 { return nameID(beastNameSuffixes, name) }

// PrefixName returns the prefix for id, or "".
func PrefixName(id uint8) string { return nameAt(beastNamePrefixes, id) }

// SuffixName returns the suffix for id, or "".
func SuffixName(id uint8) string { return nameAt(beastNameSuffixes, id) }

func nameID(table []string, name string) uint8 {
	if name == "" {
		return 0
	}
	for i, n := range table {
		if n == name {
			return uint8(i)
		}
	}
	return 0
}

func nameAt(table []string, id uint8) string {
	if int(id) >= len(table) {
		return ""
	}
	return table[id]
}

type jackpotKey struct {
	beast, prefix, suffix uint8
}

var jackpotBeasts = map[jackpotKey]struct{}{
	{29, 18, 6}: {},
	{1, 47, 11}: {},
	{53, 61, 1}: {},
}

// IsJackpot reports whether collecting beast also wins the jackpot.
func IsJackpot(beast Beast) bool {
	_, ok := jackpotBeasts[jackpotKey{beast.ID, PrefixID(beast.SpecialPrefix), SuffixID(beast.SpecialSuffix)}]
	return ok
}
