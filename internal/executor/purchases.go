// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package executor

import (
	"context"
	"fmt"

	"github.com/ManuGH/lootsurvivor/internal/game"
	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

// BuyGameRequest describes a game purchase.
type BuyGameRequest struct {
	Payment game.Payment
	Name    string
	// PreCalls run before the approval and purchase calls in the same transaction.
	PreCalls []starknet.Call
	Amount   int
	// Recipient defaults to the connected account.
	Recipient string
	// OnSubmitted runs once the transaction is accepted for submission.
	OnSubmitted func()
}

// ResolvePlayerName returns the connected player's name as a valid short
// string, or the default name.
func (e *Executor) ResolvePlayerName(ctx context.Context) string {
	if e.deps.Names == nil {
		return game.DefaultPlayerName
	}
	name, err := e.deps.Names.Username(ctx)
	if err != nil {
		e.logger.Debug().Err(err).Msg("username unavailable")
		return game.DefaultPlayerName
	}
	return game.PlayerName(name)
}

// BuyGame buys req.Amount games, at most BulkMintMax, and returns the first
// minted token id.
func (e *Executor) BuyGame(ctx context.Context, req BuyGameRequest) (uint64, error) {
	receipt, err := e.buyGame(ctx, req)
	if err != nil {
		return 0, err
	}
	return game.MintedTokenID(receipt)
}

func (e *Executor) buyGame(ctx context.Context, req BuyGameRequest) (*starknet.Receipt, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, req.Amount)
	}
	req.Amount = min(req.Amount, e.opts.Timing.BulkMintMax)
	account, err := e.account()
	if err != nil {
		return nil, err
	}
	recipient := req.Recipient
	if recipient == "" {
		recipient = account.Address()
	}
	b := e.deps.Builder

	calls := make([]starknet.Call, 0, len(req.PreCalls)+req.Amount+1)
	calls = append(calls, req.PreCalls...)
	if req.Payment.Type != game.PaymentGoldenPass {
		calls = append(calls, b.ApproveTickets(req.Amount))
	}
	name := game.NameFelt(req.Name)
	for i := 0; i < req.Amount; i++ {
		calls = append(calls, b.BuyGame(req.Payment, name, recipient))
	}

	tx, err := account.Execute(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("submit buy_game: %w", err)
	}
	metrics.IncTransactionSubmitted("buy_game")
	e.logger.Info().
		Str(xglog.FieldTxHash, tx.TransactionHash).
		Int("amount", req.Amount).
		Str("payment", req.Payment.Type).
		Msg("game purchase submitted")
	call(req.OnSubmitted)

	receipt, err := e.WaitForTransaction(ctx, tx.TransactionHash)
	if err != nil {
		return nil, err
	}
	if receipt.Reverted() {
		metrics.IncTransactionReverted("buy_game")
		return nil, fmt.Errorf("%w: buy_game reverted: %s", ErrTransactionFailed, receipt.RevertReason)
	}
	return receipt, nil
}

// MintGame mints a game token with optional custom settings.
func (e *Executor) MintGame(ctx context.Context, name string, settingsID uint32, recipient string) (uint64, error) {
	account, err := e.account()
	if err != nil {
		return 0, err
	}
	if recipient == "" {
		recipient = account.Address()
	}

	tx, err := account.Execute(ctx, []starknet.Call{e.deps.Builder.MintGame(game.NameFelt(name), settingsID, recipient)})
	if err != nil {
		return 0, fmt.Errorf("submit mint_game: %w", err)
	}
	metrics.IncTransactionSubmitted("mint_game")

	receipt, err := e.WaitForTransaction(ctx, tx.TransactionHash)
	if err != nil {
		return 0, err
	}
	if receipt.Reverted() {
		metrics.IncTransactionReverted("mint_game")
		return 0, fmt.Errorf("%w: mint_game reverted: %s", ErrTransactionFailed, receipt.RevertReason)
	}
	return game.MintedTokenID(receipt)
}

// BulkMintGames buys up to BulkMintMax games with tickets and returns the
// minted token ids.
func (e *Executor) BulkMintGames(ctx context.Context, amount int, onSubmitted func()) ([]uint64, error) {
	receipt, err := e.buyGame(ctx, BuyGameRequest{
		Payment:     game.Payment{Type: game.PaymentTicket},
		Name:        e.ResolvePlayerName(ctx),
		Amount:      amount,
		OnSubmitted: onSubmitted,
	})
	if err != nil {
		return nil, err
	}
	return game.MintedTokenIDs(receipt)
}

// EnterDungeon buys one game for the connected player and routes to it.
// The entering screen is shown as soon as the purchase is submitted; on
// any failure after that the player is sent back to the dungeon page.
func (e *Executor) EnterDungeon(ctx context.Context, payment game.Payment, preCalls []starknet.Call) (uint64, error) {
	slug := e.opts.DungeonSlug
	submitted := false
	gameID, err := e.BuyGame(ctx, BuyGameRequest{
		Payment:  payment,
		Name:     e.ResolvePlayerName(ctx),
		PreCalls: preCalls,
		Amount:   1,
		OnSubmitted: func() {
			submitted = true
			e.navigate(fmt.Sprintf("/%s/play?mode=entering", slug), false)
		},
	})
	if err != nil {
		if submitted {
			e.navigate("/"+slug, true)
		}
		return 0, err
	}

	if err := e.sleep(ctx, e.opts.Timing.EnterDungeonDelay); err != nil {
		return gameID, err
	}
	e.navigate(fmt.Sprintf("/%s/play?id=%d", slug, gameID), true)
	return gameID, nil
}

func (e *Executor) navigate(path string, replace bool) {
	if e.deps.Navigator != nil {
		e.deps.Navigator.Navigate(path, replace)
	}
}
