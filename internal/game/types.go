// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package game holds the dungeon-crawler domain: the adventurer view the
// executor reconciles against, translated events, and the call builders
// for every game entrypoint.
package game

import (
	"context"

	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

// Stats are the seven adventurer attributes in contract order.
type Stats struct {
	Strength     uint8 `json:"strength"`
	Dexterity    uint8 `json:"dexterity"`
	Vitality     uint8 `json:"vitality"`
	Intelligence uint8 `json:"intelligence"`
	Wisdom       uint8 `json:"wisdom"`
	Charisma     uint8 `json:"charisma"`
	Luck         uint8 `json:"luck"`
}

func (s Stats) felts() []string {
	return []string{
		u(uint64(s.Strength)), u(uint64(s.Dexterity)), u(uint64(s.Vitality)),
		u(uint64(s.Intelligence)), u(uint64(s.Wisdom)), u(uint64(s.Charisma)),
		u(uint64(s.Luck)),
	}
}

// Item is an owned item and its experience.
type Item struct {
	ID uint8  `json:"id"`
	XP uint16 `json:"xp"`
}

// Adventurer is the client-side view of the player's adventurer.
type Adventurer struct {
	Health                uint16  `json:"health"`
	XP                    uint16  `json:"xp"`
	Gold                  uint16  `json:"gold"`
	BeastHealth           uint16  `json:"beast_health"`
	StatUpgradesAvailable uint8   `json:"stat_upgrades_available"`
	Stats                 Stats   `json:"stats"`
	Equipment             [8]Item `json:"equipment"`
	ItemSpecialsSeed      uint16  `json:"item_specials_seed"`
	ActionCount           uint16  `json:"action_count"`
}

// AdventurerState is the indexer snapshot used as the consistency anchor.
type AdventurerState struct {
	GameID      uint64 `json:"game_id"`
	ActionCount uint16 `json:"action_count"`
	Health      uint16 `json:"health"`
	BeastHealth uint16 `json:"beast_health"`
	XP          uint16 `json:"xp"`
	Gold        uint16 `json:"gold"`
}

// Beast is the currently engaged or collectable beast.
type Beast struct {
	ID            uint8  `json:"id"`
	Name          string `json:"name"`
	Health        uint16 `json:"health"`
	Level         uint16 `json:"level"`
	Tier          uint8  `json:"tier"`
	SpecialPrefix string `json:"specialPrefix"`
	SpecialSuffix string `json:"specialSuffix"`
	IsCollectable bool   `json:"isCollectable"`
}

// Explore log event types checked before submission.
const (
	EventDiscovery = "discovery"
	EventObstacle  = "obstacle"
	EventBuyItems  = "buy_items"
)

// Discovery types checked before submission.
const (
	DiscoveryHealth = "Health"
	DiscoveryGold   = "Gold"
	DiscoveryLoot   = "Loot"
)

// Discovery describes what an explore step found.
type Discovery struct {
	Type   string `json:"type"`
	Amount uint16 `json:"amount,omitempty"`
}

// ExploreEvent is one entry of the explore log.
type ExploreEvent struct {
	Type           string         `json:"type"`
	ActionCount    uint16         `json:"action_count"`
	Discovery      *Discovery     `json:"discovery,omitempty"`
	ItemsPurchased []ItemPurchase `json:"items_purchased,omitempty"`
}

// DomainEvent is a raw chain event translated into game terms.
type DomainEvent struct {
	Type        string         `json:"type"`
	ActionCount uint16         `json:"action_count"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// ItemPurchase is one market purchase inside buy_items.
type ItemPurchase struct {
	ItemID uint8 `json:"item_id"`
	Equip  bool  `json:"equip"`
}

// Payment types accepted by buy_game.
const (
	PaymentTicket     = "Ticket"
	PaymentGoldenPass = "Golden Pass"
)

// GoldenPass identifies the golden token used as payment.
type GoldenPass struct {
	Address string `json:"address"`
	TokenID uint64 `json:"tokenId"`
}

// Payment selects how a game is bought.
type Payment struct {
	Type       string      `json:"paymentType"`
	GoldenPass *GoldenPass `json:"goldenPass,omitempty"`
}

// Stats modes for custom settings.
const (
	StatsModeDodge     = "Dodge"
	StatsModeReduction = "Reduction"
)

// Settings describes a custom game configuration for add_settings.
type Settings struct {
	VRFAddress          string     `json:"vrf_address"`
	Name                string     `json:"name"`
	Adventurer          Adventurer `json:"adventurer"`
	Bag                 []Item     `json:"bag"`
	GameSeed            uint64     `json:"game_seed"`
	GameSeedUntilXP     uint16     `json:"game_seed_until_xp"`
	InBattle            bool       `json:"in_battle"`
	StatsMode           string     `json:"stats_mode"`
	BaseDamageReduction uint8      `json:"base_damage_reduction"`
	MarketSize          uint8      `json:"market_size"`
}

// BagSize is the number of bag slots in a settings payload.
const BagSize = 15

// Store is the client's current game state.
type Store interface {
	GameID() (uint64, bool)
	Adventurer() *Adventurer
	Beast() *Beast
	LastExploreEvent() *ExploreEvent
	SetCollectableTokenURI(uri string)
}

// FatalError is the translation marker that forces a full state reload.
const FatalError = "Fatal Error"

// Translation is the result of translating one raw event. Fatal marks a
// translation that reported FatalError; Event is nil for untranslatable events.
type Translation struct {
	Event *DomainEvent
	Fatal bool
}

// Translator maps raw receipt events to domain events.
type Translator interface {
	Translate(ev starknet.Event, gameID uint64) Translation
}

// StateReader reads the indexer snapshot for a game.
type StateReader interface {
	AdventurerState(ctx context.Context, gameID uint64) (*AdventurerState, error)
}
