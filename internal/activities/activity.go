package activities

// Activity is one of Create, Delete, Follow, Accept, Undo or Unknown.
// The set is closed: the unexported method keeps other packages from adding variants.
type Activity interface {
	activityType() string
}

// Note is the object of a Create.
type Note struct {
	ID           string
	AttributedTo string
	Content      *string
	Summary      *string
	InReplyTo    *string
	QuoteURL     *string
	To           []string
	CC           []string
	Hashtags     []string
	Choices      []string
	Attachments  []Attachment
}

// Attachment is a remote file referenced by a note. The file itself is not fetched.
type Attachment struct {
	URL       string
	MediaType string
}

type Create struct {
	ID     string
	Object Note
}

// Delete targets either a post URI or the sending actor itself.
type Delete struct {
	ID       string
	ObjectID string
}

type Follow struct {
	ID       string
	ObjectID string
}

type Accept struct {
	ID string
}

// Undo carries the activity being reverted. Only Follow is acted upon.
type Undo struct {
	ID     string
	Object Activity
}

type Unknown struct {
	ID   string
	Type string
}

func (Create) activityType() string    { return "Create" }
func (Delete) activityType() string    { return "Delete" }
func (Follow) activityType() string    { return "Follow" }
func (Accept) activityType() string    { return "Accept" }
func (Undo) activityType() string      { return "Undo" }
func (u Unknown) activityType() string { return u.Type }

// TypeOf returns the wire type name of an activity.
func TypeOf(a Activity) string {
	return a.activityType()
}
