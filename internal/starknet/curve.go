// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package starknet

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/ManuGH/lootsurvivor/internal/felt"
)

// Stark curve y^2 = x^3 + alpha*x + beta over the Starknet field.
var (
	curveAlpha = big.NewInt(1)
	curveBeta  = mustHex("6f21413efbe40de150e596d72f7a8c5609ad26c15c915c1f4cdfcb99cee9e89")
	// CurveOrder is the order of the generator.
	CurveOrder = mustHex("800000000000010ffffffffffffffffb781126dcae7b2321e66a241adc64d2f")
	generator  = point{
		x: mustHex("1ef15c18599971b7beced415a40f0c7deacfd9b0d1819e03d723d8bc943cfca"),
		y: mustHex("5668060aa49730b7be4801df46ec62de53ecd11abe43a2f11000e3be73f6c8f"),
	}
)

// ErrInvalidPrivateKey is returned for scalars outside [1, CurveOrder).
var ErrInvalidPrivateKey = errors.New("invalid stark private key")

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("starknet: bad curve constant " + s)
	}
	return n
}

// point is an affine curve point. The zero value with nil coordinates is
// the point at infinity.
type point struct {
	x, y *big.Int
}

func (p point) infinity() bool { return p.x == nil }

func (p point) onCurve() bool {
	if p.infinity() {
		return true
	}
	lhs := new(big.Int).Mul(p.y, p.y)
	lhs.Mod(lhs, felt.Prime)
	rhs := new(big.Int).Exp(p.x, big.NewInt(3), felt.Prime)
	rhs.Add(rhs, new(big.Int).Mul(curveAlpha, p.x))
	rhs.Add(rhs, curveBeta)
	rhs.Mod(rhs, felt.Prime)
	return lhs.Cmp(rhs) == 0
}

func (p point) add(q point) point {
	switch {
	case p.infinity():
		return q
	case q.infinity():
		return p
	}
	var slope *big.Int
	if p.x.Cmp(q.x) == 0 {
		sum := new(big.Int).Add(p.y, q.y)
		if sum.Mod(sum, felt.Prime).Sign() == 0 {
			return point{}
		}
		// (3x^2 + alpha) / 2y
		num := new(big.Int).Mul(p.x, p.x)
		num.Mul(num, big.NewInt(3)).Add(num, curveAlpha)
		den := new(big.Int).Lsh(p.y, 1)
		slope = num.Mul(num, den.ModInverse(den.Mod(den, felt.Prime), felt.Prime))
	} else {
		num := new(big.Int).Sub(q.y, p.y)
		den := new(big.Int).Sub(q.x, p.x)
		den.Mod(den, felt.Prime)
		slope = num.Mul(num, den.ModInverse(den, felt.Prime))
	}
	slope.Mod(slope, felt.Prime)

	x := new(big.Int).Mul(slope, slope)
	x.Sub(x, p.x).Sub(x, q.x).Mod(x, felt.Prime)
	y := new(big.Int).Sub(p.x, x)
	y.Mul(y, slope).Sub(y, p.y).Mod(y, felt.Prime)
	return point{x: x, y: y}
}

func (p point) mul(k *big.Int) point {
	acc := point{}
	for i := k.BitLen() - 1; i >= 0; i-- {
		acc = acc.add(acc)
		if k.Bit(i) == 1 {
			acc = acc.add(p)
		}
	}
	return acc
}

// StarkKey returns the public key of priv: the x coordinate of priv*G.
func StarkKey(priv *big.Int) (*big.Int, error) {
	if priv == nil || priv.Sign() <= 0 || priv.Cmp(CurveOrder) >= 0 {
		return nil, ErrInvalidPrivateKey
	}
	return generator.mul(priv).x, nil
}

// GenerateStarkKey draws a private key uniformly from [1, CurveOrder) and
// returns it with its public key.
func GenerateStarkKey(random io.Reader) (priv, pub *big.Int, err error) {
	if random == nil {
		random = rand.Reader
	}
	limit := new(big.Int).Sub(CurveOrder, big.NewInt(1))
	k, err := rand.Int(random, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("generate stark key: %w", err)
	}
	k.Add(k, big.NewInt(1))
	pub, err = StarkKey(k)
	if err != nil {
		return nil, nil, err
	}
	return k, pub, nil
}
