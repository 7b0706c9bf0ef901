package tribles

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/triblespace/tribles-go/tribles/patch"
)

// TribleSet is a set of Tribles, indexed six ways (EAV, EVA, AEV, AVE,
// VEA, VAE) so that every (bound-subset-of-{e,a,v}) query shape has a
// matching PATCH ordering to answer it with a single segmented_len /
// infixes call (see tribles/query's pattern constraint).
//
// Every public operation maintains the invariant that all six PATCHes
// hold the same key set; TribleSet never exposes a state where they
// disagree.
type TribleSet struct {
	eav, eva, aev, ave, vea, vae *patch.PATCH[struct{}]
}

// NewTribleSet returns an empty TribleSet.
func NewTribleSet() *TribleSet {
	return &TribleSet{
		eav: patch.New[struct{}](patch.EAV),
		eva: patch.New[struct{}](patch.EVA),
		aev: patch.New[struct{}](patch.AEV),
		ave: patch.New[struct{}](patch.AVE),
		vea: patch.New[struct{}](patch.VEA),
		vae: patch.New[struct{}](patch.VAE),
	}
}

// Clone returns a set sharing the current node graphs; it costs six
// cheap handle copies and the clone's future mutations never affect
// the receiver.
func (s *TribleSet) Clone() *TribleSet {
	return &TribleSet{
		eav: s.eav.Clone(),
		eva: s.eva.Clone(),
		aev: s.aev.Clone(),
		ave: s.ave.Clone(),
		vea: s.vea.Clone(),
		vae: s.vae.Clone(),
	}
}

// Len returns the number of distinct tribles stored.
func (s *TribleSet) Len() uint64 { return s.eav.Len() }

// Insert adds t to the set, a no-op if t is already present.
func (s *TribleSet) Insert(t Trible) {
	s.eav.Insert(t[:], struct{}{})
	s.eva.Insert(t[:], struct{}{})
	s.aev.Insert(t[:], struct{}{})
	s.ave.Insert(t[:], struct{}{})
	s.vea.Insert(t[:], struct{}{})
	s.vae.Insert(t[:], struct{}{})
}

// Remove deletes t from the set, a no-op if t is absent. This is a
// local forget only: nothing records the removal, so a set the trible
// was previously merged into is unaffected.
func (s *TribleSet) Remove(t Trible) {
	s.eav.Remove(t[:])
	s.eva.Remove(t[:])
	s.aev.Remove(t[:])
	s.ave.Remove(t[:])
	s.vea.Remove(t[:])
	s.vae.Remove(t[:])
}

// Contains reports whether t is a member of the set.
func (s *TribleSet) Contains(t Trible) bool {
	return s.eav.HasPrefix(t[:])
}

// Each calls f for every trible in the set, in unspecified order.
func (s *TribleSet) Each(f func(Trible)) {
	s.eav.Each(func(key []byte, _ struct{}) {
		var t Trible
		copy(t[:], key)
		f(t)
	})
}

// EAV exposes the EAV-ordered index directly, for callers (such as
// tribles/query and tribles/archive) that need schema-aware access
// rather than the trible-shaped surface above.
func (s *TribleSet) EAV() *patch.PATCH[struct{}] { return s.eav }
func (s *TribleSet) EVA() *patch.PATCH[struct{}] { return s.eva }
func (s *TribleSet) AEV() *patch.PATCH[struct{}] { return s.aev }
func (s *TribleSet) AVE() *patch.PATCH[struct{}] { return s.ave }
func (s *TribleSet) VEA() *patch.PATCH[struct{}] { return s.vea }
func (s *TribleSet) VAE() *patch.PATCH[struct{}] { return s.vae }

// sixWise runs f once per index 0..5 (one per ordering), fanning out
// across goroutines: the six PATCHes are logically independent copies
// of the same set, so the six recombination passes in
// Union/Intersect/Difference have no cross-talk and can run
// concurrently.
func sixWise(f func(i int) *patch.PATCH[struct{}]) [6]*patch.PATCH[struct{}] {
	g, _ := errgroup.WithContext(context.Background())
	var out [6]*patch.PATCH[struct{}]
	for i := 0; i < 6; i++ {
		i := i
		g.Go(func() error {
			out[i] = f(i)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *TribleSet) six() [6]*patch.PATCH[struct{}] {
	return [6]*patch.PATCH[struct{}]{s.eav, s.eva, s.aev, s.ave, s.vea, s.vae}
}

func fromSix(p [6]*patch.PATCH[struct{}]) *TribleSet {
	return &TribleSet{eav: p[0], eva: p[1], aev: p[2], ave: p[3], vea: p[4], vae: p[5]}
}

// Union returns a new set holding every trible in s or o.
func (s *TribleSet) Union(o *TribleSet) *TribleSet {
	sp, op := s.six(), o.six()
	return fromSix(sixWise(func(i int) *patch.PATCH[struct{}] { return sp[i].Union(op[i]) }))
}

// Intersect returns a new set holding every trible present in both s
// and o.
func (s *TribleSet) Intersect(o *TribleSet) *TribleSet {
	sp, op := s.six(), o.six()
	return fromSix(sixWise(func(i int) *patch.PATCH[struct{}] { return sp[i].Intersect(op[i]) }))
}

// Difference returns a new set holding every trible present in s but
// not in o.
func (s *TribleSet) Difference(o *TribleSet) *TribleSet {
	sp, op := s.six(), o.six()
	return fromSix(sixWise(func(i int) *patch.PATCH[struct{}] { return sp[i].Difference(op[i]) }))
}

// Equal reports whether s and o hold the same set of tribles.
func (s *TribleSet) Equal(o *TribleSet) bool {
	return s.eav.Equal(o.eav)
}
