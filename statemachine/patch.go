package statemachine

import "goa.design/wfcore/coresdk"

// Patch is memoized per id within a run: once a value has been computed for
// an id it is returned again on every subsequent call, and if that value is
// true a SetPatchMarker command is emitted exactly once.
//
// Semantics: if the instance is not replaying, or if a NotifyHasPatch job
// for id has been recorded (meaning the history already contains a marker
// for it), patch returns true. Otherwise — replaying history recorded
// before this patch id existed — it returns false, so the workflow takes
// the pre-patch branch and reproduces the original commands.
func (s *State) Patch(id string, deprecated bool) (bool, error) {
	if err := s.assertNotFrozen(); err != nil {
		return false, err
	}
	if v, ok := s.patches[id]; ok {
		return v, nil
	}

	v := !s.IsReplaying || s.notified[id]
	s.patches[id] = v
	if v {
		s.appendCommand(coresdk.Command{Kind: coresdk.CommandSetPatchMarker, PatchID: id, Deprecated: deprecated})
	}
	return v, nil
}

// NotifyHasPatch records that the history already contains a marker for id,
// applied from a NotifyHasPatch job before any workflow code that might
// call Patch(id) runs in this activation.
func (s *State) NotifyHasPatch(id string) {
	s.notified[id] = true
}
