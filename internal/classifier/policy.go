package classifier

import "github.com/user/ferry-watch/internal/domain"

// Policy fuses the structural and lexical channels into a verdict.
type Policy struct {
	MinStructural int
	MinLexical    int
	// Corroborate accepts weak evidence when both channels agree.
	Corroborate bool
	// NegativeKeywordVeto also rejects pages whose text has an unavailability phrase.
	NegativeKeywordVeto bool
}

func DefaultPolicy() Policy {
	return Policy{MinStructural: 2, MinLexical: 3, Corroborate: true}
}

// Decide reports availability. Any structural unavailability marker vetoes.
func (p Policy) Decide(s domain.PageSignal) bool {
	if s.StructuralUnavailable > 0 {
		return false
	}
	if p.NegativeKeywordVeto && s.LexicalNegative > 0 {
		return false
	}
	if s.StructuralAvailable >= p.MinStructural || s.LexicalPositive >= p.MinLexical {
		return true
	}
	return p.Corroborate && s.StructuralAvailable > 0 && s.LexicalPositive > 0
}
