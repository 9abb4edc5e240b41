package service

import (
	"sort"

	"poetportal/internal/models"
)

// ThreadEngagement carries the per-comment data a tree node is decorated with.
// Missing entries leave the node's author empty, its count at zero and its
// liked flag false.
type ThreadEngagement struct {
	Authors map[uint]*models.User
	Likes   map[uint]int64
	Liked   map[uint]bool
}

// BuildCommentTree assembles the flat comments of postID into a forest.
//
// Every comment is first indexed by id, then linked under its parent. A
// comment is rejected when it belongs to another post, when its parent is
// unknown or when its parent belongs to another post. A walk from the roots
// then rejects anything it cannot reach, which is exactly the members of
// parent cycles and their descendants. Siblings are ordered by creation time
// and then id, so the result does not depend on the order of comments.
// Rejected ids are returned in ascending order.
func BuildCommentTree(postID uint, comments []*models.Comment, eng ThreadEngagement) ([]*models.CommentNode, []uint) {
	roots, rejected, _ := assembleCommentTree(postID, comments, eng)
	return roots, rejected
}

// assembleCommentTree is BuildCommentTree that also reports how many nodes
// ended up attached to the forest.
func assembleCommentTree(postID uint, comments []*models.Comment, eng ThreadEngagement) ([]*models.CommentNode, []uint, int) {
	nodes := make(map[uint]*models.CommentNode, len(comments))
	posts := make(map[uint]uint, len(comments))
	created := make(map[uint]int64, len(comments))

	for _, c := range comments {
		if c == nil {
			continue
		}
		if _, dup := nodes[c.ID]; dup {
			continue
		}
		node := &models.CommentNode{
			ID:         c.ID,
			PostID:     c.PostID,
			ParentID:   c.ParentID,
			Content:    c.Content,
			CreatedAt:  c.CreatedAt,
			LikesCount: eng.Likes[c.ID],
			Liked:      eng.Liked[c.ID],
			Replies:    []*models.CommentNode{},
		}
		if author := eng.Authors[c.UserID]; author != nil {
			node.Author = author.Summary()
		} else if c.User != nil {
			node.Author = c.User.Summary()
		} else {
			node.Author = models.UserSummary{ID: c.UserID}
		}
		nodes[c.ID] = node
		posts[c.ID] = c.PostID
		created[c.ID] = c.CreatedAt.UnixNano()
	}

	var roots []*models.CommentNode
	rejected := make(map[uint]bool)
	for id, node := range nodes {
		if posts[id] != postID {
			rejected[id] = true
			continue
		}
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*node.ParentID]
		if !ok || posts[parent.ID] != postID {
			rejected[id] = true
			continue
		}
		parent.Replies = append(parent.Replies, node)
	}

	less := func(list []*models.CommentNode) func(i, j int) bool {
		return func(i, j int) bool {
			a, b := created[list[i].ID], created[list[j].ID]
			if a != b {
				return a < b
			}
			return list[i].ID < list[j].ID
		}
	}
	sort.Slice(roots, less(roots))

	reached := make(map[uint]bool, len(nodes))
	queue := make([]*models.CommentNode, 0, len(nodes))
	for _, root := range roots {
		root.Depth = 1
		reached[root.ID] = true
		queue = append(queue, root)
	}
	for i := 0; i < len(queue); i++ {
		node := queue[i]
		node.CanReply = node.Depth < models.MaxReplyDepth
		kept := node.Replies[:0]
		for _, child := range node.Replies {
			if reached[child.ID] || rejected[child.ID] {
				continue
			}
			reached[child.ID] = true
			child.Depth = node.Depth + 1
			kept = append(kept, child)
		}
		node.Replies = kept
		sort.Slice(node.Replies, less(node.Replies))
		queue = append(queue, node.Replies...)
	}

	for id := range nodes {
		if !reached[id] {
			rejected[id] = true
		}
	}
	out := make([]uint, 0, len(rejected))
	for id := range rejected {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	if roots == nil {
		roots = []*models.CommentNode{}
	}
	return roots, out, len(queue)
}
