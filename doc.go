// Package markers maintains user-registered points of interest inside the
// per-world HOCON documents a map renderer reads.
//
// Every add runs one read-modify-write cycle on the world's document while
// holding that document's lock: the configured marker set is created if
// missing, the label is turned into an ID unique within the set, and the new
// record is merged in without disturbing anything else in the document. Only
// after the document is durably saved is the reload tracker marked dirty, so a
// failed write never schedules a renderer reload.
//
//	registry, _ := markers.NewRegistry(map[string]string{"overworld": "/srv/maps/overworld.conf"}, "")
//	svc, _ := markers.NewService(registry, state.NewFileStore[document.Tree](document.HOCON),
//		markers.WithTracker(tracker))
//	res, err := svc.AddMarker(ctx, markers.AddRequest{World: "overworld", Label: "Spawn", Y: 64})
package markers
