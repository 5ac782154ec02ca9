package threads

// Scope describes one reply table and the container rows it hangs off.
// Table and column names are fixed at compile time and interpolated into
// SQL, never taken from input.
type Scope struct {
	Name           string // used in error ops and logs
	Table          string
	ContainerTable string
	ContainerCol   string
	ContainerLabel string
	RevisionTable  string
	Lockable       bool // container has an is_locked column
}

// ForumPosts is the scope for forum thread posts. Threads can be locked.
var ForumPosts = Scope{
	Name:           "forum_post",
	Table:          "forum_posts",
	ContainerTable: "forum_threads",
	ContainerCol:   "thread_id",
	ContainerLabel: "thread",
	RevisionTable:  "forum_post_revisions",
	Lockable:       true,
}

// ChatMessages is the scope for chat room messages.
var ChatMessages = Scope{
	Name:           "chat",
	Table:          "chats",
	ContainerTable: "chat_rooms",
	ContainerCol:   "room_id",
	ContainerLabel: "chat room",
	RevisionTable:  "chat_revisions",
}

func (s Scope) op(action string) string {
	return s.Name + "." + action
}
