// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pathtree implements the materialized-path arithmetic for the
// location hierarchy. A path is a dot-separated sequence of slugs
// anchored under a fixed "root" label: a top-level location "Garage"
// has path "root.garage" and depth 1. All functions are pure string
// operations — the database stores paths as plain text and the store
// layer runs prefix queries against them.
package pathtree

import "strings"

// MaxDepth is the deepest allowed nesting level, not counting the root
// anchor. Five levels cover realistic storage hierarchies (building →
// room → shelf → bin → compartment); the limit is enforced at create
// time.
const MaxDepth = 5

// RootLabel anchors every path. It is not a location itself and does
// not count toward depth.
const RootLabel = "root"

// Separator joins path segments.
const Separator = "."

// Child appends a slug to a parent path. An empty parent produces a
// top-level path directly under the root anchor.
func Child(parent, seg string) string {
	if parent == "" {
		return RootLabel + Separator + seg
	}
	return parent + Separator + seg
}

// Depth returns the nesting level of a path, excluding the root
// anchor: "root.garage" has depth 1, "root.garage.top_shelf" depth 2.
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, Separator)
}

// Parent returns the path with its last segment removed, or "" for a
// top-level path (whose only ancestor is the root anchor).
func Parent(path string) string {
	idx := strings.LastIndex(path, Separator)
	if idx == -1 {
		return ""
	}
	p := path[:idx]
	if p == RootLabel {
		return ""
	}
	return p
}

// LastSegment returns the final segment of a path — the slug of the
// location itself.
func LastSegment(path string) string {
	idx := strings.LastIndex(path, Separator)
	if idx == -1 {
		return path
	}
	return path[idx+1:]
}

// ChildrenPrefix returns the prefix shared by all children of the
// given parent path. For the top level that is the root anchor.
func ChildrenPrefix(parent string) string {
	if parent == "" {
		return RootLabel
	}
	return parent
}

// IsAncestorOf reports whether a location at ancestor contains the
// location at path, directly or transitively. A path is not its own
// ancestor.
func IsAncestorOf(ancestor, path string) bool {
	return strings.HasPrefix(path, ancestor+Separator)
}

// Rebase replaces the oldPrefix of path with newPrefix, preserving
// every segment after it. Used when a rename rewrites a whole subtree.
func Rebase(path, oldPrefix, newPrefix string) string {
	if path == oldPrefix {
		return newPrefix
	}
	if IsAncestorOf(oldPrefix, path) {
		return newPrefix + path[len(oldPrefix):]
	}
	return path
}
