package tui

type stage int

const (
	stageAnimate stage = iota
	stageAddPhrase
)

const heroTagline = "Phrases, typed and untyped."

const (
	minLineWidth          = 20
	lineHorizontalPadding = 8
	snapshotBuffer        = 16
	phraseCharLimit       = 160
)

const phraseInputPlaceholder = "Type a phrase to append to the rotation…"

// visibilityChannel adapts a plain channel to typing.VisibilitySource.
type visibilityChannel chan bool

func (c visibilityChannel) Visible() <-chan bool {
	return c
}
