// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"

	"github.com/ManuGH/lootsurvivor/internal/felt"
)

// ChainID names a supported chain.
type ChainID string

const (
	ChainMainnet ChainID = "SN_MAIN"
	ChainSepolia ChainID = "SN_SEPOLIA"
	ChainSlot    ChainID = "WP_PG_SLOT"
)

// Preset identifies the app to the identity provider.
const Preset = "loot-survivor"

// PaymentToken is an ERC-20 accepted by the dungeon.
type PaymentToken struct {
	Name            string
	Address         string
	DisplayDecimals int
	Decimals        int
}

// PolicyMethod is one entrypoint a session key may call.
type PolicyMethod struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Entrypoint  string `json:"entrypoint"`
}

// ContractPolicy lists the entrypoints allowed on one contract.
type ContractPolicy struct {
	Description string         `json:"description,omitempty"`
	Methods     []PolicyMethod `json:"methods"`
}

// SessionPolicies is the set of calls a session key is authorized for,
// keyed by contract address.
type SessionPolicies struct {
	Contracts map[string]ContractPolicy `json:"contracts"`
}

// Contracts holds the addresses the client calls directly.
type Contracts struct {
	GameSystems   string
	GameToken     string
	Settings      string
	Dungeon       string
	DungeonTicket string
	VRFProvider   string
	Beasts        string
	GoldenToken   string
	EkuboRouter   string
	Denshokan     string
}

// NetworkConfig is the static configuration of one chain. It is immutable
// once selected.
type NetworkConfig struct {
	ChainID       ChainID
	Namespace     string
	Slot          string
	Preset        string
	VRF           bool
	RPCURL        string
	ToriiURL      string
	Contracts     Contracts
	ERC20         []string
	PaymentTokens []PaymentToken
	Policies      SessionPolicies
}

// SessionChainID returns the chain id as the decimal value of its short-string felt.
func (n NetworkConfig) SessionChainID() string {
	hex, err := felt.EncodeShortString(string(n.ChainID))
	if err != nil {
		return "0"
	}
	v, err := felt.Parse(hex)
	if err != nil {
		return "0"
	}
	return v.String()
}

var gamePolicies = SessionPolicies{Contracts: map[string]ContractPolicy{
	"0x452810188c4cb3aebd63711a3b445755bc0d6c4f27b923fdd99b1a118858136": {
		Methods: []PolicyMethod{{Name: "Approve", Entrypoint: "approve"}},
	},
	"0x00a67ef20b61a9846e1c82b411175e6ab167ea9f8632bd6c2091823c3629ec42": {
		Methods: []PolicyMethod{{Name: "Buy Game", Entrypoint: "buy_game"}},
	},
	"0x5e2dfbdc3c193de629e5beb116083b06bd944c1608c9c793351d5792ba29863": {
		Description: "Token contract for Death Mountain utilising Denshokan",
		Methods: []PolicyMethod{
			{Name: "Mint Game Token", Description: "Mints a new Death Mountain game token", Entrypoint: "mint_game"},
		},
	},
	"0x6f7c4350d6d5ee926b3ac4fa0c9c351055456e75c92227468d84232fc493a9c": {
		Description: "Main game contract for Loot Survivor gameplay",
		Methods: []PolicyMethod{
			{Name: "Start Game", Description: "Starts a new adventure in Loot Survivor", Entrypoint: "start_game"},
			{Name: "Explore", Description: "Explore the dungeon", Entrypoint: "explore"},
			{Name: "Attack", Description: "Attack enemies in combat", Entrypoint: "attack"},
			{Name: "Flee", Description: "Attempt to flee from combat", Entrypoint: "flee"},
			{Name: "Buy Items", Description: "Purchase items from the market", Entrypoint: "buy_items"},
			{Name: "Equip Item", Description: "Equip an item from your inventory", Entrypoint: "equip"},
			{Name: "Drop Item", Description: "Drop an item from your inventory", Entrypoint: "drop"},
			{Name: "Select Stat Upgrades", Description: "Choose which stats to upgrade when leveling up", Entrypoint: "select_stat_upgrades"},
		},
	},
	"0xa67ef20b61a9846e1c82b411175e6ab167ea9f8632bd6c2091823c3629ec42": {
		Description: "Special dungeon mode with beast NFT rewards and jackpot system",
		Methods: []PolicyMethod{
			{Name: "Buy Game", Description: "Purchase access to Beast Mode Dungeon", Entrypoint: "buy_game"},
			{Name: "Claim Beast", Description: "Claim your earned beast NFT", Entrypoint: "claim_beast"},
			{Name: "Claim Reward Token", Description: "Claim your reward tokens", Entrypoint: "claim_reward_token"},
			{Name: "Claim Jackpot", Description: "Claim the jackpot rewards", Entrypoint: "claim_jackpot"},
		},
	},
	"0x046da8955829adf2bda310099a0063451923f02e648cf25a1203aac6335cf0e4": {
		Description: "beast NFT contract",
		Methods: []PolicyMethod{
			{Name: "Refresh Dungeon Stats", Description: "Updates beast dungeon stats", Entrypoint: "refresh_dungeon_stats"},
		},
	},
	"0x051fea4450da9d6aee758bdeba88b2f665bcbf549d2c61421aa724e9ac0ced8f": {
		Description: "Verifiable Random Function contract, allows randomness in the game",
		Methods: []PolicyMethod{
			{Name: "Request Random", Description: "Allows requesting random numbers from the VRF provider", Entrypoint: "request_random"},
		},
	},
	"0x3299ace782ec54afcbf81e31e92d6146649b6c484173e41f4de529f6d504fe8": {
		Description: "Contract for claiming free game tokens through eligibility verification",
		Methods: []PolicyMethod{
			{Name: "Verify and Forward", Description: "Verify eligibility and claim free games", Entrypoint: "verify_and_forward"},
		},
	},
}}

var networks = map[ChainID]NetworkConfig{
	ChainMainnet: {
		ChainID:   ChainMainnet,
		Namespace: "ls_0_0_9",
		Slot:      "pg-mainnet-10",
		VRF:       true,
		RPCURL:    "https://api.cartridge.gg/x/starknet/mainnet/rpc/v0_9",
		ToriiURL:  "https://api.cartridge.gg/x/pg-mainnet-10/torii",
		Contracts: Contracts{
			GameSystems:   "0x6f7c4350d6d5ee926b3ac4fa0c9c351055456e75c92227468d84232fc493a9c",
			GameToken:     "0x05e2dfbdc3c193de629e5beb116083b06bd944c1608c9c793351d5792ba29863",
			Dungeon:       "0x00a67ef20b61a9846e1c82b411175e6ab167ea9f8632bd6c2091823c3629ec42",
			DungeonTicket: "0x0452810188C4Cb3AEbD63711a3b445755BC0D6C4f27B923fDd99B1A118858136",
			VRFProvider:   "0x051fea4450da9d6aee758bdeba88b2f665bcbf549d2c61421aa724e9ac0ced8f",
			Beasts:        "0x046da8955829adf2bda310099a0063451923f02e648cf25a1203aac6335cf0e4",
			GoldenToken:   "0x027838dea749f41c6f8a44fcfa791788e6101080c1b3cd646a361f653ad10e2d",
			EkuboRouter:   "0x0199741822c2dc722f6f605204f35e56dbc23bceed54818168c4c49e4fb8737e",
			Denshokan:     "0x036017e69d21d6d8c13e266eabb73ef1f1d02722d86bdcabe5f168f8e549d3cd",
		},
		ERC20: []string{
			"0x042dd777885ad2c116be96d4d634abc90a26a790ffb5871e037dd5ae7d2ec86b",
			"0x0452810188C4Cb3AEbD63711a3b445755BC0D6C4f27B923fDd99B1A118858136",
		},
		PaymentTokens: []PaymentToken{
			{Name: "LORDS", Address: "0x0124aeb495b947201f5fac96fd1138e326ad86195b98df6dec9009158a533b49", DisplayDecimals: 0, Decimals: 18},
			{Name: "ETH", Address: "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7", DisplayDecimals: 4, Decimals: 18},
			{Name: "STRK", Address: "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d", DisplayDecimals: 2, Decimals: 18},
			{Name: "USDC.e Bridged", Address: "0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8", DisplayDecimals: 2, Decimals: 6},
			{Name: "USDC", Address: "0x033068F6539f8e6e6b131e6B2B814e6c34A5224bC66947c47DaB9dFeE93b35fb", DisplayDecimals: 2, Decimals: 6},
			{Name: "TICKET", Address: "0x0452810188C4Cb3AEbD63711a3b445755BC0D6C4f27B923fDd99B1A118858136", DisplayDecimals: 0, Decimals: 18},
			{Name: "SURVIVOR", Address: "0x042DD777885AD2C116be96d4D634abC90A26A790ffB5871E037Dd5Ae7d2Ec86B", DisplayDecimals: 0, Decimals: 18},
		},
	},
	ChainSlot: {
		ChainID:   ChainSlot,
		Namespace: "ls_0_0_6",
		Slot:      "pg-slot-5",
		RPCURL:    "https://api.cartridge.gg/x/pg-slot-4/katana",
		ToriiURL:  "https://api.cartridge.gg/x/pg-slot-5/torii",
		Contracts: Contracts{
			GameToken: "0x056a32ac6baa3d3e2634d55e6f2ca07bfee4ab09c6c6f0b93d456b0a6da4c84c",
			Denshokan: "0x01d3950941c7cbb80160d2fd3f112bb9885244833e547b298dfed040ce1e140f",
		},
	},
}

// Network returns the registered configuration for a chain id. The returned
// value shares no mutable state with the registry.
func Network(id ChainID) (NetworkConfig, error) {
	n, ok := networks[id]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, id)
	}
	n.Preset = Preset
	n.ERC20 = append([]string(nil), n.ERC20...)
	n.PaymentTokens = append([]PaymentToken(nil), n.PaymentTokens...)
	n.Policies = clonePolicies(gamePolicies)
	return n, nil
}

// TranslateName maps a network name to its chain id.
func TranslateName(network string) (ChainID, bool) {
	switch strings.ToLower(network) {
	case "mainnet":
		return ChainMainnet, true
	case "sepolia":
		return ChainSepolia, true
	case "katana":
		return ChainSlot, true
	}
	return "", false
}

func clonePolicies(p SessionPolicies) SessionPolicies {
	out := SessionPolicies{Contracts: make(map[string]ContractPolicy, len(p.Contracts))}
	for addr, c := range p.Contracts {
		c.Methods = append([]PolicyMethod(nil), c.Methods...)
		out.Contracts[addr] = c
	}
	return out
}
