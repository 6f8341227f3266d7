package tracker

import "github.com/mj1618/overlaywin/internal/model"

// Translate decodes a raw tracker record. Records with an unknown type tag
// return ok=false so newer trackers can add event kinds without breaking us.
func Translate(rec model.Record) (e Event, ok bool) {
	switch rec.Type {
	case model.EventAttach:
		return Attach{
			Bounds:       rec.Bounds(),
			Fullscreen:   model.TristateOf(rec.IsFullscreen),
			HasAccess:    model.TristateOf(rec.HasAccess),
			MatchedTitle: rec.MatchedTitle,
		}, true
	case model.EventFocus:
		return Focus{}, true
	case model.EventBlur:
		return Blur{ToOverlay: rec.ToOverlay != nil && *rec.ToOverlay}, true
	case model.EventDetach:
		return Detach{}, true
	case model.EventFullscreen:
		return Fullscreen{IsFullscreen: rec.IsFullscreen != nil && *rec.IsFullscreen}, true
	case model.EventMoveResize:
		return MoveResize{Bounds: rec.Bounds()}, true
	default:
		return nil, false
	}
}

// Encode is the inverse of Translate, used when journaling or injecting events.
func Encode(e Event) model.Record {
	switch ev := e.(type) {
	case Attach:
		rec := model.Record{Type: model.EventAttach, MatchedTitle: ev.MatchedTitle}.WithBounds(ev.Bounds)
		if ev.Fullscreen.Known() {
			rec.IsFullscreen = model.Bool(ev.Fullscreen.Bool())
		}
		if ev.HasAccess.Known() {
			rec.HasAccess = model.Bool(ev.HasAccess.Bool())
		}
		return rec
	case Blur:
		rec := model.Record{Type: model.EventBlur}
		if ev.ToOverlay {
			rec.ToOverlay = model.Bool(true)
		}
		return rec
	case Fullscreen:
		return model.Record{Type: model.EventFullscreen, IsFullscreen: model.Bool(ev.IsFullscreen)}
	case MoveResize:
		return model.Record{Type: model.EventMoveResize}.WithBounds(ev.Bounds)
	default:
		return model.Record{Type: e.Type()}
	}
}
