package decoration

import "fmt"

// Kind is the decoration type. The numeric order is the overlap priority:
// later kinds win over earlier ones.
type Kind uint8

const (
	KindLifetime Kind = iota
	KindImmBorrow
	KindMutBorrow
	KindMove
	KindCall
	KindSharedMut
	KindOutlive
)

var kindNames = [...]string{
	KindLifetime:  "lifetime",
	KindImmBorrow: "imm_borrow",
	KindMutBorrow: "mut_borrow",
	KindMove:      "move",
	KindCall:      "call",
	KindSharedMut: "shared_mut",
	KindOutlive:   "outlive",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Priority returns the overlap priority of k.
func (k Kind) Priority() int {
	return int(k)
}

func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown decoration kind %d", k)
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i) // #nosec G115 -- small table
			return nil
		}
	}
	return fmt.Errorf("unknown decoration kind %q", b)
}
