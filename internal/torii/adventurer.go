// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package torii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ManuGH/lootsurvivor/internal/felt"
	"github.com/ManuGH/lootsurvivor/internal/game"
	xglog "github.com/ManuGH/lootsurvivor/internal/log"
)

// number decodes a JSON number or a hex/decimal string.
type number uint64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	v, err := felt.ParseUint64(s)
	if err != nil {
		return err
	}
	*n = number(v)
	return nil
}

type adventurerRow struct {
	ActionCount number `json:"action_count"`
	Health      number `json:"health"`
	BeastHealth number `json:"beast_health"`
	XP          number `json:"xp"`
	Gold        number `json:"gold"`
}

// AdventurerState returns the latest indexed adventurer snapshot for
// gameID, or nil when the game is not indexed yet.
func (c *Client) AdventurerState(ctx context.Context, gameID uint64) (*game.AdventurerState, error) {
	q := fmt.Sprintf(
		`SELECT "details.adventurer.action_count" AS action_count, "details.adventurer.health" AS health, `+
			`"details.adventurer.beast_health" AS beast_health, "details.adventurer.xp" AS xp, "details.adventurer.gold" AS gold `+
			`FROM %s WHERE adventurer_id = '%s' ORDER BY action_count DESC LIMIT 1`,
		c.table("GameEvent"), paddedHex(gameID))

	var rows []adventurerRow
	if err := c.Query(ctx, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		c.logger.Debug().Uint64(xglog.FieldGameID, gameID).Msg("adventurer not indexed yet")
		return nil, nil
	}
	r := rows[0]
	return &game.AdventurerState{
		GameID:      gameID,
		ActionCount: uint16(r.ActionCount),
		Health:      uint16(r.Health),
		BeastHealth: uint16(r.BeastHealth),
		XP:          uint16(r.XP),
		Gold:        uint16(r.Gold),
	}, nil
}

type tokenRow struct {
	TokenID number `json:"token_id"`
}

// BeastTokenID looks up the collectable token minted for beast, if any.
func (c *Client) BeastTokenID(ctx context.Context, beast game.Beast) (uint64, bool, error) {
	q := fmt.Sprintf(
		`SELECT token_id FROM %s WHERE beast_id = %d AND prefix = %d AND suffix = %d ORDER BY token_id DESC LIMIT 1`,
		c.table("CollectableEntity"), beast.ID, game.PrefixID(beast.SpecialPrefix), game.SuffixID(beast.SpecialSuffix))

	var rows []tokenRow
	if err := c.Query(ctx, q, &rows); err != nil {
		return 0, false, err
	}
	if len(rows) == 0 || rows[0].TokenID == 0 {
		return 0, false, nil
	}
	return uint64(rows[0].TokenID), true, nil
}

// paddedHex renders id as a 64-digit felt, the indexer's key format.
func paddedHex(id uint64) string {
	return fmt.Sprintf("0x%064x", id)
}
