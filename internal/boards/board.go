package boards

// BoardIdentifier identifies a board model. An identifier with a name and no
// FQBN stands for a board known only by its display name (not installed).
type BoardIdentifier struct {
	Name string `json:"name"`
	FQBN string `json:"fqbn,omitempty"`
}

// HasFQBN reports whether the identifier carries an FQBN.
func (b BoardIdentifier) HasFQBN() bool {
	return b.FQBN != ""
}

type equalsOptions struct {
	strictFQBN bool
}

// EqualsOption tunes BoardIdentifierEquals.
type EqualsOption func(*equalsOptions)

// StrictFQBN compares FQBNs verbatim, including configuration options.
func StrictFQBN() EqualsOption {
	return func(o *equalsOptions) {
		o.strictFQBN = true
	}
}

// BoardIdentifierEquals compares two identifiers. With both FQBNs present the
// sanitized FQBNs decide (unless StrictFQBN is given). With exactly one FQBN
// present they are never equal. Without FQBNs the names decide.
func BoardIdentifierEquals(left, right *BoardIdentifier, opts ...EqualsOption) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	var o equalsOptions
	for _, opt := range opts {
		opt(&o)
	}

	switch {
	case left.HasFQBN() && right.HasFQBN():
		if o.strictFQBN {
			return left.FQBN == right.FQBN
		}
		return SanitizeFQBN(left.FQBN) == SanitizeFQBN(right.FQBN)
	case left.HasFQBN() != right.HasFQBN():
		return false
	default:
		return left.Name == right.Name
	}
}

// BoardsConfig is the user's board and port selection.
type BoardsConfig struct {
	SelectedBoard *BoardIdentifier `json:"selected_board,omitempty"`
	SelectedPort  *PortIdentifier  `json:"selected_port,omitempty"`
}

// IsDefined reports whether both a board and a port are selected.
func (c BoardsConfig) IsDefined() bool {
	return c.SelectedBoard != nil && c.SelectedPort != nil
}

// BoardListHistory maps port keys to the board the user picked for that port.
type BoardListHistory map[string]BoardIdentifier
