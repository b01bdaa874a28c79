// Package model provides the model tree that variable scopes mirror.
//
// A [Tree] hands out [Scope] handles for its nodes and tracks the parent of
// each one. Destroying a node destroys its subtree children first, and
// [Events] announces every destruction before it happens, so collaborators
// such as the variable manager can release per-scope state explicitly.
//
// Values hosted by a node are reached through a [Location]: a gettable and
// settable slot with a string identity that is unique among the locations of
// the same scope. [Properties] is a simple property bag that hands out
// locations for its keys.
package model
