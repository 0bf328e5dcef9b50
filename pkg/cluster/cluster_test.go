package cluster

import "testing"

func sampleBlock() ([][]int64, [][]uint64) {
	kHist := [][]int64{
		{4, 0, 0, 0},
		{3, 1, 0, 0},
		{0, 0, 0, 4},
	}
	monoHist := [][]uint64{
		{4, 0, 0, 0},
		{3, 1, 0, 0},
		{0, 0, 0, 4},
	}
	return kHist, monoHist
}

func TestShiftWeightedAveragesMembersWithinThreshold(t *testing.T) {
	kHist, monoHist := sampleBlock()
	identity := []float64{1.0, 0.9, 0.1}
	c := NewFromIndex(kHist, monoHist, identity, 0.5, 0)

	if err := c.ShiftWeighted(); err != nil {
		t.Fatal(err)
	}
	if !c.HasShifted() {
		t.Fatal("expected the cluster to shift with 2 members above threshold")
	}
	if len(c.MemberList()) != 2 {
		t.Fatalf("expected 2 members, got %v", c.MemberList())
	}
	// Average of {4,0,0,0} and {3,1,0,0} is {3.5,0.5,0,0}; math.Round rounds
	// halves away from zero, giving {4,1,0,0}.
	want := []int64{4, 1, 0, 0}
	got := c.KHistMean()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestShiftWeightedNoMembersLeavesUnshifted(t *testing.T) {
	kHist, monoHist := sampleBlock()
	identity := []float64{0.1, 0.1, 0.1}
	c := NewFromIndex(kHist, monoHist, identity, 0.5, 0)

	if err := c.ShiftWeighted(); err != nil {
		t.Fatal(err)
	}
	if c.HasShifted() {
		t.Error("expected no shift when nothing scores above threshold")
	}
}

func TestShiftWeightedRejectsStaleIdentityList(t *testing.T) {
	kHist, monoHist := sampleBlock()
	c := NewFromIndex(kHist, monoHist, []float64{1, 1, 1}, 0.5, 0)
	c.isIdentityCurrent = false
	if err := c.ShiftWeighted(); err != ErrStaleIdentityList {
		t.Fatalf("expected ErrStaleIdentityList, got %v", err)
	}
}

func TestUpdateAccumulatedMeanCarriesForward(t *testing.T) {
	kHist, monoHist := sampleBlock()
	c := NewFromIndex(kHist, monoHist, []float64{1, 1, 0}, 0.5, 0)
	if err := c.ShiftWeighted(); err != nil {
		t.Fatal(err)
	}
	c.UpdateAccumulatedMean()
	if c.OldContribution() != c.Contribution() {
		t.Errorf("expected old contribution to match contribution after commit, got %d vs %d", c.OldContribution(), c.Contribution())
	}
	if len(c.KHistOld()) != len(c.KHistMean()) {
		t.Fatal("expected old histogram to be carried forward")
	}
	for i := range c.KHistMean() {
		if c.KHistOld()[i] != c.KHistMean()[i] {
			t.Errorf("index %d: old %v != mean %v", i, c.KHistOld()[i], c.KHistMean()[i])
		}
	}
}

func TestMergeSimpleUnionsMembersAndSumsCounters(t *testing.T) {
	kHist, monoHist := sampleBlock()
	a := NewFromIndex(kHist, monoHist, []float64{1, 1, 0}, 0.5, 0)
	if err := a.ShiftWeighted(); err != nil {
		t.Fatal(err)
	}
	b := NewFromIndex(kHist, monoHist, []float64{1, 0, 1}, 0.5, 2)
	if err := b.ShiftWeighted(); err != nil {
		t.Fatal(err)
	}
	b.IncrementAssignment()

	aContribBefore := a.Contribution()
	a.MergeSimple([]*Cluster{b})

	if a.Contribution() != aContribBefore+b.Contribution() {
		t.Errorf("expected contributions summed, got %d", a.Contribution())
	}
	if a.Assignment() != b.Assignment() {
		t.Errorf("expected assignment folded in, got %d want %d", a.Assignment(), b.Assignment())
	}
	members := map[int]bool{}
	for _, m := range a.MemberList() {
		members[m] = true
	}
	if !members[0] || !members[1] || !members[2] {
		t.Errorf("expected union of member lists {0,1,2}, got %v", a.MemberList())
	}
}

func TestLengthSumsMonoHistogram(t *testing.T) {
	kHist, monoHist := sampleBlock()
	c := NewFromIndex(kHist, monoHist, []float64{1, 1, 1}, 0.5, 0)
	if got := c.Length(); got != 4 {
		t.Errorf("expected length 4, got %d", got)
	}
}

func TestNewCarriedOverSeedsOldHistograms(t *testing.T) {
	kHist, monoHist := sampleBlock()
	c := NewCarriedOver(kHist, monoHist, []float64{1, 1, 1}, 0.5, []int64{1, 2, 3, 4}, []uint64{1, 2, 3, 4}, 5, 7)
	if c.OldContribution() != 5 || c.Contribution() != 5 || c.Assignment() != 7 {
		t.Errorf("unexpected seeded counters: old=%d contrib=%d assign=%d", c.OldContribution(), c.Contribution(), c.Assignment())
	}
	if c.OldLength() != 10 {
		t.Errorf("expected old length 10, got %d", c.OldLength())
	}
}
