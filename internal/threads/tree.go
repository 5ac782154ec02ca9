// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package threads

import (
	"sort"

	"github.com/google/uuid"

	"trailhub/internal/models"
)

// RootOrder selects how top-level nodes are ordered. Children are always
// oldest-first.
type RootOrder int

const (
	RootsNewestFirst RootOrder = iota
	RootsOldestFirst
)

// BuildForest arranges a container's flat node list into trees. It groups
// nodes by parent once and then attaches children recursively, so the cost
// is linear in the number of nodes.
//
// A node whose parent is not in the list is treated as a root. Each node is
// attached at most once; nodes only reachable through a parent cycle are
// promoted to roots so corrupt data still yields a finite forest.
func BuildForest(nodes []*models.ReplyNode, order RootOrder) []*models.ReplyNode {
	byID := make(map[uuid.UUID]*models.ReplyNode, len(nodes))
	for _, n := range nodes {
		n.Children = nil
		byID[n.ID] = n
	}

	children := make(map[uuid.UUID][]*models.ReplyNode)
	var roots []*models.ReplyNode
	for _, n := range nodes {
		if n.ParentID != nil && *n.ParentID != n.ID {
			if _, ok := byID[*n.ParentID]; ok {
				children[*n.ParentID] = append(children[*n.ParentID], n)
				continue
			}
		}
		roots = append(roots, n)
	}

	for _, kids := range children {
		sortChronological(kids, false)
	}
	sortChronological(roots, order == RootsNewestFirst)

	visited := make(map[uuid.UUID]bool, len(nodes))
	var attach func(n *models.ReplyNode, depth int)
	attach = func(n *models.ReplyNode, depth int) {
		visited[n.ID] = true
		n.Depth = depth
		for _, c := range children[n.ID] {
			if visited[c.ID] {
				continue
			}
			n.Children = append(n.Children, c)
			attach(c, depth+1)
		}
	}

	result := make([]*models.ReplyNode, 0, len(roots))
	for _, r := range roots {
		result = append(result, r)
		attach(r, 0)
	}

	// Anything left unvisited sits on a parent cycle.
	var orphans []*models.ReplyNode
	for _, n := range nodes {
		if !visited[n.ID] {
			orphans = append(orphans, n)
		}
	}
	sortChronological(orphans, false)
	for _, n := range orphans {
		if visited[n.ID] {
			continue
		}
		result = append(result, n)
		attach(n, 0)
	}
	return result
}

// sortChronological orders by creation time, breaking ties by ID so the
// result is deterministic.
func sortChronological(nodes []*models.ReplyNode, newestFirst bool) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID.String() < b.ID.String()
		}
		if newestFirst {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// Walk visits every node of a forest depth-first.
func Walk(forest []*models.ReplyNode, fn func(*models.ReplyNode)) {
	for _, n := range forest {
		fn(n)
		Walk(n.Children, fn)
	}
}

// Count returns the number of nodes in a forest.
func Count(forest []*models.ReplyNode) int {
	total := 0
	Walk(forest, func(*models.ReplyNode) { total++ })
	return total
}
