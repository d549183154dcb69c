package addr

import "fmt"

// Region is the I/O space an address lives in.
type Region int

const (
	Input Region = iota
	Output
)

func (r Region) String() string {
	if r == Input {
		return "I"
	}
	return "Q"
}

// Granularity is the access width of an address.
type Granularity int

const (
	Bit Granularity = iota
	Byte
	Word
	DWord
)

// Bits returns the access width in bits.
func (g Granularity) Bits() int {
	switch g {
	case Bit:
		return 1
	case Byte:
		return 8
	case Word:
		return 16
	case DWord:
		return 32
	}
	return 0
}

func (g Granularity) String() string {
	switch g {
	case Bit:
		return "X"
	case Byte:
		return "B"
	case Word:
		return "W"
	case DWord:
		return "D"
	}
	return "?"
}

// Address is a parsed hardware address literal, e.g. %IX0.1 or %QW2.
// Pos counts in units of the granularity; BitPos is only meaningful for
// Bit-granularity addresses.
type Address struct {
	Region Region
	Gran   Granularity
	Pos    int
	BitPos int
}

// Parse parses an address literal of the form
//
//	"%" ("I"|"Q") ("X"|"B"|"W"|"D") INT ["." INT]
func Parse(lexeme string) (*Address, error) {
	s := lexeme
	if len(s) < 3 || s[0] != '%' {
		return nil, fmt.Errorf("malformed address literal %q", lexeme)
	}
	s = s[1:]

	a := &Address{}
	switch s[0] {
	case 'I':
		a.Region = Input
	case 'Q':
		a.Region = Output
	default:
		return nil, fmt.Errorf("malformed address literal %q: bad region %q", lexeme, s[0])
	}
	s = s[1:]

	switch s[0] {
	case 'X':
		a.Gran = Bit
	case 'B':
		a.Gran = Byte
	case 'W':
		a.Gran = Word
	case 'D':
		a.Gran = DWord
	default:
		return nil, fmt.Errorf("malformed address literal %q: bad granularity %q", lexeme, s[0])
	}
	s = s[1:]

	pos, bit := 0, 0
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		pos = pos*10 + int(s[i]-'0')
		i++
	}
	if i == 0 {
		return nil, fmt.Errorf("malformed address literal %q: missing position", lexeme)
	}
	if i < len(s) {
		if s[i] != '.' || a.Gran != Bit {
			return nil, fmt.Errorf("malformed address literal %q", lexeme)
		}
		i++
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			bit = bit*10 + int(s[j]-'0')
			j++
		}
		if j == i || j != len(s) {
			return nil, fmt.Errorf("malformed address literal %q: missing bit position", lexeme)
		}
		if bit > 7 {
			return nil, fmt.Errorf("malformed address literal %q: bit position out of range", lexeme)
		}
	}
	a.Pos = pos
	a.BitPos = bit
	return a, nil
}

// BytePos returns the absolute byte offset within the region. Multi-byte
// granularities count positions in units of their own size, so %IW1 starts
// at byte 2.
func (a *Address) BytePos() int {
	switch a.Gran {
	case Word:
		return a.Pos * 2
	case DWord:
		return a.Pos * 4
	default:
		return a.Pos
	}
}

// FirstBit and LastBit give the inclusive absolute bit extent of the address
// within its region.
func (a *Address) FirstBit() int {
	return a.BytePos()*8 + a.BitPos
}

func (a *Address) LastBit() int {
	return a.FirstBit() + a.Gran.Bits() - 1
}

// Overlaps reports whether two addresses claim intersecting bit ranges of the
// same region.
func (a *Address) Overlaps(b *Address) bool {
	if a.Region != b.Region {
		return false
	}
	return a.FirstBit() <= b.LastBit() && b.FirstBit() <= a.LastBit()
}

func (a *Address) String() string {
	s := fmt.Sprintf("%%%s%s%d", a.Region, a.Gran, a.Pos)
	if a.Gran == Bit {
		s += fmt.Sprintf(".%d", a.BitPos)
	}
	return s
}

// Claim records one variable's hold on an address extent.
type Claim struct {
	Name string
	Addr *Address
}

// ClaimSet tracks the address extents already claimed by declared variables,
// per region, so overlapping declarations can be rejected.
type ClaimSet struct {
	claims []Claim
}

// Claim registers addr for name. If the extent intersects an existing claim,
// the name of the earlier claimant is returned and the set is unchanged.
func (cs *ClaimSet) Claim(name string, a *Address) (conflict string, ok bool) {
	for _, c := range cs.claims {
		if c.Addr.Overlaps(a) {
			return c.Name, false
		}
	}
	cs.claims = append(cs.claims, Claim{Name: name, Addr: a})
	return "", true
}

// Claims returns all claims in registration order.
func (cs *ClaimSet) Claims() []Claim {
	return cs.claims
}
