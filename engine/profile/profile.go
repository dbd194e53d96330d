package profile

/** @brief Identifies which profile source an entry came from. */
type Kind uint8

const (
	KindApplication Kind = iota
	KindTuning
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindApplication:
		return "Application"
	case KindTuning:
		return "Tuning"
	case KindRuntime:
		return "Runtime"
	}
	return "Unknown"
}

/**
 * @brief Initial entry capacity reserved by New. A hint, not a hard limit:
 * profiles grow past it when a rule file carries more entries.
 */
const InitialEntryCapacity = 8

/**
 * @brief An ordered rule set owned by one optimizer instance. Entries are
 * evaluated in order; every matching entry applies, later matches able to
 * override earlier ones. Immutable once built.
 */
type Profile struct {
	Kind    Kind
	Entries []Entry
}

func New(kind Kind) *Profile {
	return &Profile{
		Kind:    kind,
		Entries: make([]Entry, 0, InitialEntryCapacity),
	}
}

// Append grows the profile by one zeroed entry and returns it for the
// builder to fill in.
func (p *Profile) Append() *Entry {
	p.Entries = append(p.Entries, Entry{})
	return &p.Entries[len(p.Entries)-1]
}

func (p *Profile) EntryCount() int {
	return len(p.Entries)
}
