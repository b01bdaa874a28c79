// Package variable resolves strings containing variable references against
// a tree of scopes, and keeps the resolved values up to date as variables
// change.
//
// # Grammar
//
// Informal EBNF:
//
//	Root        → (Escape | Expression | Text)*
//	Escape      → '\' <any character>
//	Expression  → '${' (Escape | Expression | Text)* '}'
//	Text        → <characters up to '\', '${', or (inside an expression) '}'>
//
// An escape yields the character after the backslash, so \${a} is the
// literal text ${a}. The body of an expression is a property path such as
// user.name or items[0]; its first dot-separated segment names the variable
// it depends on. Expressions may nest: ${a${b}} looks up the path formed by
// "a" followed by the value of b.
//
// A string made of a single expression keeps the type of the looked-up
// value. Anything else is the concatenation of its parts.
//
// # Example
//
//	m := variable.NewManager(tree, events, events)
//	_ = m.Set("user", map[string]any{"name": "World"}, root)
//
//	v, _ := m.RegisterReference(loc, "Hello ${user.name}!")
//	// v == "Hello World!" and loc now holds the same value.
//
//	_ = m.Set("user", map[string]any{"name": "Gopher"}, root)
//	// loc now holds "Hello Gopher!"
//
// # Scoping
//
// Each scope has its own variables. Lookups walk from a scope up to the root,
// and the nearest definition wins. Defining a variable in a scope moves the
// references of that scope (and its descendants) that depended on an
// ancestor's definition of the same name over to the new definition.
//
// A reference to a variable that is not defined anywhere creates a nil
// placeholder at the root scope, so defining the variable later resolves the
// reference.
package variable
