package resource

type Value = any

type Status string

const (
	StatusCreated       Status = "Created"
	StatusUpdated       Status = "Updated"
	StatusDeleted       Status = "Deleted"
	StatusUpToDate      Status = "Up to date"
	StatusFailed        Status = "Failed"
	StatusFetched       Status = "Fetched"
	StatusDeletedRemote Status = "Deleted on remote"
)

type Operation string

const (
	OperationDeploy Operation = "deploy"
	OperationFetch  Operation = "fetch"
)

// Entry is one deployable or fetchable unit. Key is unique within one
// service namespace; Path is empty for entries that only exist remotely.
type Entry struct {
	Key     string `json:"key" yaml:"key"`
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Payload Value  `json:"-" yaml:"-"`
	Status  Status `json:"status,omitempty" yaml:"status,omitempty"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (e Entry) WithStatus(status Status, detail string) Entry {
	e.Status = status
	e.Detail = detail
	return e
}

// Failed builds a Failed entry for a file that could not produce entries.
func Failed(entryType string, path string, name string, reason string) Entry {
	return Entry{
		Key:    path,
		Name:   name,
		Type:   entryType,
		Path:   path,
		Status: StatusFailed,
		Detail: reason,
	}
}

func (e Entry) identity() string {
	return e.Key + "\x00" + e.Path
}

func CloneEntries(src []Entry) []Entry {
	if len(src) == 0 {
		return nil
	}
	dst := make([]Entry, len(src))
	copy(dst, src)
	return dst
}
