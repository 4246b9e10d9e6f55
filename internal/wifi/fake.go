package wifi

// FakeAssociator is a test double whose association status is set directly.
type FakeAssociator struct {
	// Associated controls the return value of IsAssociated.
	Associated bool

	// Begins records the SSID of every BeginAssociation call.
	Begins []string

	// Disassociations counts Disassociate calls.
	Disassociations int

	// AssociateOnBegin, if true, makes BeginAssociation succeed immediately.
	AssociateOnBegin bool
}

// NewFakeAssociator creates an unassociated FakeAssociator.
func NewFakeAssociator() *FakeAssociator {
	return &FakeAssociator{}
}

// BeginAssociation records the attempt.
func (f *FakeAssociator) BeginAssociation(ssid, secret string) {
	f.Begins = append(f.Begins, ssid)
	if f.AssociateOnBegin {
		f.Associated = true
	}
}

// Disassociate clears the association flag.
func (f *FakeAssociator) Disassociate() {
	f.Disassociations++
	f.Associated = false
}

// IsAssociated returns Associated.
func (f *FakeAssociator) IsAssociated() bool {
	return f.Associated
}
