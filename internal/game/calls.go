// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package game

import (
	"math/big"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/config"
	"github.com/ManuGH/lootsurvivor/internal/felt"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

// Entrypoints inspected by the reconciliation step.
const (
	EntrypointBuyItems = "buy_items"
	EntrypointEquip    = "equip"
	EntrypointDrop     = "drop"
)

// StarterWeapons are the item ids a new game may start with.
var StarterWeapons = []uint8{12, 16, 46, 76}

// VRF randomness source type for salted requests.
const vrfSourceSalt = 1

var weiPerTicket = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Builder creates the calls for the game, dungeon and settings contracts of one network.
type Builder struct {
	contracts config.Contracts

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBuilder returns a Builder for contracts.
func NewBuilder(contracts config.Contracts) *Builder {
	return NewBuilderWithRand(contracts, rand.New(rand.NewSource(time.Now().UnixNano()))) // #nosec G404 -- cosmetic weapon pick
}

// NewBuilderWithRand is NewBuilder with a caller-supplied random source.
func NewBuilderWithRand(contracts config.Contracts, rnd *rand.Rand) *Builder {
	return &Builder{contracts: contracts, rnd: rnd}
}

// Contracts returns the addresses the builder targets.
func (b *Builder) Contracts() config.Contracts { return b.contracts }

func u(v uint64) string { return strconv.FormatUint(v, 10) }

func boolFelt(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (b *Builder) game(entrypoint string, calldata ...string) starknet.Call {
	return starknet.Call{ContractAddress: b.contracts.GameSystems, Entrypoint: entrypoint, Calldata: calldata}
}

func (b *Builder) dungeon(entrypoint string, calldata ...string) starknet.Call {
	return starknet.Call{ContractAddress: b.contracts.Dungeon, Entrypoint: entrypoint, Calldata: calldata}
}

// StartGame starts gameID with a randomly chosen starter weapon.
func (b *Builder) StartGame(gameID uint64) starknet.Call {
	b.mu.Lock()
	weapon := StarterWeapons[b.rnd.Intn(len(StarterWeapons))]
	b.mu.Unlock()
	return b.game("start_game", u(gameID), u(uint64(weapon)))
}

// Explore explores once, or until a beast is met when tillBeast is set.
func (b *Builder) Explore(gameID uint64, tillBeast bool) starknet.Call {
	return b.game("explore", u(gameID), boolFelt(tillBeast))
}

// Attack attacks the engaged beast.
func (b *Builder) Attack(gameID uint64, toTheDeath bool) starknet.Call {
	return b.game("attack", u(gameID), boolFelt(toTheDeath))
}

// Flee flees from the engaged beast.
func (b *Builder) Flee(gameID uint64, toTheDeath bool) starknet.Call {
	return b.game("flee", u(gameID), boolFelt(toTheDeath))
}

// Equip equips bag items.
func (b *Builder) Equip(gameID uint64, items []uint8) starknet.Call {
	return b.game(EntrypointEquip, itemList(gameID, items)...)
}

// Drop drops equipped or bagged items.
func (b *Builder) Drop(gameID uint64, items []uint8) starknet.Call {
	return b.game(EntrypointDrop, itemList(gameID, items)...)
}

func itemList(gameID uint64, items []uint8) []string {
	out := make([]string, 0, len(items)+2)
	out = append(out, u(gameID), u(uint64(len(items))))
	for _, id := range items {
		out = append(out, u(uint64(id)))
	}
	return out
}

// BuyItems buys potions and market items. Potions is always calldata[1].
func (b *Builder) BuyItems(gameID uint64, potions uint8, items []ItemPurchase) starknet.Call {
	out := make([]string, 0, 3+2*len(items))
	out = append(out, u(gameID), u(uint64(potions)), u(uint64(len(items))))
	for _, it := range items {
		out = append(out, u(uint64(it.ItemID)), boolFelt(it.Equip))
	}
	return b.game(EntrypointBuyItems, out...)
}

// SelectStatUpgrades spends available stat points.
func (b *Builder) SelectStatUpgrades(gameID uint64, stats Stats) starknet.Call {
	return b.game("select_stat_upgrades", append([]string{u(gameID)}, stats.felts()...)...)
}

// RequestRandom asks the VRF provider for randomness consumed by the game contract.
func (b *Builder) RequestRandom(salt *big.Int) starknet.Call {
	return starknet.Call{
		ContractAddress: b.contracts.VRFProvider,
		Entrypoint:      "request_random",
		Calldata:        []string{b.contracts.GameSystems, u(vrfSourceSalt), salt.String()},
	}
}

// ClaimRewardToken claims survivor tokens earned by gameID.
func (b *Builder) ClaimRewardToken(gameID uint64) starknet.Call {
	return b.dungeon("claim_reward_token", u(gameID))
}

// ClaimJackpot claims the jackpot for a collected beast token.
func (b *Builder) ClaimJackpot(tokenID uint64) starknet.Call {
	return b.dungeon("claim_jackpot", u(tokenID))
}

// ClaimBeast mints the defeated beast. Unknown special names encode as 0.
func (b *Builder) ClaimBeast(gameID uint64, beast Beast) starknet.Call {
	return b.dungeon("claim_beast",
		u(gameID), u(uint64(beast.ID)),
		u(uint64(PrefixID(beast.SpecialPrefix))), u(uint64(SuffixID(beast.SpecialSuffix))))
}

// RefreshDungeonStats refreshes the on-chain stats of a collected beast.
func (b *Builder) RefreshDungeonStats(tokenID uint64) starknet.Call {
	return starknet.Call{
		ContractAddress: b.contracts.Beasts,
		Entrypoint:      "refresh_dungeon_stats",
		Calldata:        []string{felt.Uint64ToHex(tokenID), "0x0"},
	}
}

// ApproveTickets approves the dungeon to spend amount tickets as a u256.
func (b *Builder) ApproveTickets(amount int) starknet.Call {
	wei := new(big.Int).Mul(big.NewInt(int64(amount)), weiPerTicket)
	return starknet.Call{
		ContractAddress: b.contracts.DungeonTicket,
		Entrypoint:      "approve",
		Calldata:        []string{b.contracts.Dungeon, wei.String(), "0"},
	}
}

// PaymentCalldata encodes the payment enum of buy_game.
func PaymentCalldata(p Payment) []string {
	if p.Type == PaymentGoldenPass && p.GoldenPass != nil {
		return []string{"1", p.GoldenPass.Address, u(p.GoldenPass.TokenID)}
	}
	return []string{"0"}
}

// BuyGame buys one game token for recipient. nameFelt is the encoded player name.
func (b *Builder) BuyGame(p Payment, nameFelt, recipient string) starknet.Call {
	calldata := PaymentCalldata(p)
	calldata = append(calldata, "0", nameFelt, recipient, boolFelt(false))
	return b.dungeon("buy_game", calldata...)
}

// MintGame mints a game token directly, optionally with custom settings.
func (b *Builder) MintGame(nameFelt string, settingsID uint32, recipient string) starknet.Call {
	calldata := []string{
		"0", nameFelt,
		"0", u(uint64(settingsID)),
		"1", "1", "1", "1", "1", "1", // start, end, objective_ids, context, client_url, renderer_address: None
		recipient,
		boolFelt(false),
	}
	return starknet.Call{ContractAddress: b.contracts.GameToken, Entrypoint: "mint_game", Calldata: calldata}
}

// AddSettings registers custom game settings.
func (b *Builder) AddSettings(s Settings) (starknet.Call, error) {
	name, err := felt.EncodeShortString(s.Name)
	if err != nil {
		return starknet.Call{}, err
	}

	calldata := []string{s.VRFAddress, name}
	calldata = append(calldata, felt.EncodeByteArray(s.Name+" settings")...)
	calldata = append(calldata, s.Adventurer.felts()...)
	for i := 0; i < BagSize; i++ {
		var it Item
		if i < len(s.Bag) {
			it = s.Bag[i]
		}
		calldata = append(calldata, u(uint64(it.ID)), u(uint64(it.XP)))
	}
	statsMode := "1"
	if s.StatsMode == StatsModeDodge {
		statsMode = "0"
	}
	calldata = append(calldata,
		boolFelt(false), // bag mutated
		u(s.GameSeed),
		u(uint64(s.GameSeedUntilXP)),
		boolFelt(s.InBattle),
		statsMode,
		u(uint64(s.BaseDamageReduction)),
		u(uint64(s.MarketSize)),
	)
	return starknet.Call{ContractAddress: b.contracts.Settings, Entrypoint: "add_settings", Calldata: calldata}, nil
}

func (a Adventurer) felts() []string {
	out := []string{
		u(uint64(a.Health)), u(uint64(a.XP)), u(uint64(a.Gold)), u(uint64(a.BeastHealth)),
		u(uint64(a.StatUpgradesAvailable)),
	}
	out = append(out, a.Stats.felts()...)
	for _, it := range a.Equipment {
		out = append(out, u(uint64(it.ID)), u(uint64(it.XP)))
	}
	return append(out, u(uint64(a.ItemSpecialsSeed)), u(uint64(a.ActionCount)))
}
