package schedule

// ProgramType is the CMS taxonomy id classifying a program node.
type ProgramType int

const (
	TypeTalk        ProgramType = 5
	TypeWorkshop    ProgramType = 6
	TypeCompetition ProgramType = 7
	TypePerformance ProgramType = 16
	TypeGame        ProgramType = 23
	TypeDiscussion  ProgramType = 25
	TypeOther       ProgramType = 26
)

type Author struct {
	UID  int
	Name string
}

type Room struct {
	TID         int
	Name        string
	Description string
	Weight      int
}

type Line struct {
	TID          int
	Name         string
	Color        string
	Weight       int
	ExtraProgram bool
}

// Program is the canonical schedule record, independent of output
// dialect. Reference fields hold external numeric ids; Location is 0
// when the node has no room assigned.
type Program struct {
	PID        int
	Title      string
	Types      []ProgramType
	Authors    []int
	Lines      []int
	Location   int
	StartTime  string
	EndTime    string
	Annotation string
	Summary    string
	Highlight  bool
	Changed    string
}

// Entry is a Program with its references resolved to display values.
// Missing references resolve to sentinels, never errors.
type Entry struct {
	Program
	AuthorNames   string
	LocationLabel string
	LineNames     string
	FirstLine     string
	Color         string
	SortWeight    int
}

// Sentinels substituted for unresolved references.
const (
	Undefined        = "UNDEFINED"
	ColorUnresolved  = "transparent"
	WeightUnresolved = 9999
)
