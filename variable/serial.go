package variable

import "log/slog"

// Deserializer turns stored strings containing expressions into live
// references.
type Deserializer struct {
	manager *Manager
}

// NewDeserializer returns a deserializer registering references with m.
func NewDeserializer(m *Manager) Deserializer {
	return Deserializer{manager: m}
}

// CanDeserialize reports whether v is a string holding an expression.
func (d Deserializer) CanDeserialize(v any) bool {
	s, ok := v.(string)

	return ok && d.manager.IsVariableExpression(s)
}

// Deserialize registers s as a reference at loc and returns its current
// value.
func (d Deserializer) Deserialize(s string, loc Location) (any, error) {
	return d.manager.RegisterReference(loc, s)
}

// Serializer turns live references back into their expression strings.
type Serializer struct {
	manager *Manager
}

// NewSerializer returns a serializer reading references from m.
func NewSerializer(m *Manager) Serializer {
	return Serializer{manager: m}
}

// CanSerialize reports whether a reference is registered at loc.
func (s Serializer) CanSerialize(loc Location) bool {
	return s.manager.IsVariableReference(loc)
}

// Serialize returns the expression of the reference at loc. Unlike
// ExpressionAt it leaves the reference's dependency set intact.
func (s Serializer) Serialize(loc Location) (string, error) {
	ref, ok := s.manager.Reference(loc)
	if !ok {
		return "", ErrNotRegistered.With(
			slog.String("location", loc.String()),
			slog.String("scope", loc.Scope().String()),
		)
	}

	return ref.Expression(), nil
}
