// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package turandot

// CurvePoint is a point on the elliptic curve
//
//	y^2 = x^3 + alpha*x + beta
//
// defined over the field of Felt values. The zero value represents the point
// at infinity.
type CurvePoint struct {
	X Felt
	Y Felt
}

var (
	curveAlpha = NewFelt(1)
	curveBeta  = mustParseFelt("0x6f21413efbe40de150e596d72f7a8c5609ad26c15c915c1f4cdfcb99cee9e89")

	// CurveGenerator is the standard base point of the curve.
	CurveGenerator = CurvePoint{
		X: mustParseFelt("0x1ef15c18599971b7beced415a40f0c7deacfd9b0d1819e03d723d8bc943cfca"),
		Y: mustParseFelt("0x5668060aa49730b7be4801df46ec62de53ecd11abe43a32873000c36e8dc1f"),
	}
)

func mustParseFelt(s string) Felt {
	res, err := ParseFelt(s)
	if err != nil {
		panic(err)
	}
	return res
}

// IsInfinity reports whether the point is the point at infinity.
func (p CurvePoint) IsInfinity() bool {
	return p.X.IsZero() && p.Y.IsZero()
}

// IsOnCurve reports whether the point satisfies the curve equation. The
// point at infinity is not considered to be on the curve.
func (p CurvePoint) IsOnCurve() bool {
	if p.IsInfinity() {
		return false
	}
	lhs := p.Y.Mul(p.Y)
	rhs := p.X.Mul(p.X).Mul(p.X).Add(curveAlpha.Mul(p.X)).Add(curveBeta)
	return lhs.Eq(rhs)
}

// CurveAdd adds two curve points. Inputs are expected to be on the curve or
// the point at infinity; the result of adding a point to its inverse is the
// point at infinity.
func CurveAdd(p, q CurvePoint) CurvePoint {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}
	if p.X.Eq(q.X) {
		if p.Y.Eq(q.Y) {
			return curveDouble(p)
		}
		return CurvePoint{}
	}
	slope := q.Y.Sub(p.Y).Mul(q.X.Sub(p.X).Inv())
	x := slope.Mul(slope).Sub(p.X).Sub(q.X)
	y := slope.Mul(p.X.Sub(x)).Sub(p.Y)
	return CurvePoint{X: x, Y: y}
}

func curveDouble(p CurvePoint) CurvePoint {
	if p.Y.IsZero() {
		return CurvePoint{}
	}
	numerator := NewFelt(3).Mul(p.X).Mul(p.X).Add(curveAlpha)
	slope := numerator.Mul(p.Y.Add(p.Y).Inv())
	x := slope.Mul(slope).Sub(p.X).Sub(p.X)
	y := slope.Mul(p.X.Sub(x)).Sub(p.Y)
	return CurvePoint{X: x, Y: y}
}

// CurveMul multiplies a curve point by a scalar using a double-and-add walk
// over the scalar bits.
func CurveMul(p CurvePoint, scalar Felt) CurvePoint {
	result := CurvePoint{}
	bytes := scalar.Bytes32be()
	for _, b := range bytes {
		for bit := 7; bit >= 0; bit-- {
			result = CurveAdd(result, result)
			if b&(1<<bit) != 0 {
				result = CurveAdd(result, p)
			}
		}
	}
	return result
}
