package timesync

// FakeClient is a test double with scripted Update results.
type FakeClient struct {
	// Results are returned by successive Update calls. Once exhausted,
	// Update returns false.
	Results []bool

	// Epoch is returned by EpochTime.
	Epoch int64

	// Offset records the last SetOffset value.
	Offset int

	Begins       int
	Updates      int
	ForceUpdates int
}

// NewFakeClient creates a FakeClient returning results in order.
func NewFakeClient(epoch int64, results ...bool) *FakeClient {
	return &FakeClient{Epoch: epoch, Results: results}
}

func (f *FakeClient) Begin() { f.Begins++ }

func (f *FakeClient) SetOffset(seconds int) { f.Offset = seconds }

func (f *FakeClient) Update() bool {
	i := f.Updates
	f.Updates++
	if i < len(f.Results) {
		return f.Results[i]
	}
	return false
}

func (f *FakeClient) ForceUpdate() { f.ForceUpdates++ }

func (f *FakeClient) EpochTime() int64 { return f.Epoch + int64(f.Offset) }
