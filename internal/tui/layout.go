package tui

type pageLayout struct {
	windowWidth  int
	windowHeight int
	boxWidth     int
	lineWidth    int
	inputWidth   int
}

func newPageLayout() pageLayout {
	return pageLayout{
		boxWidth:   72,
		lineWidth:  72 - lineHorizontalPadding,
		inputWidth: 60,
	}
}

// Update sizes the animated line box to the window. The box keeps a
// minimum width so that narrow terminals wrap rather than truncate.
func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	box := width - 4
	if box < minLineWidth+lineHorizontalPadding {
		box = minLineWidth + lineHorizontalPadding
	}
	if box > 120 {
		box = 120
	}
	l.boxWidth = box
	l.lineWidth = box - lineHorizontalPadding
	l.inputWidth = l.lineWidth - 4
	if l.inputWidth < minLineWidth {
		l.inputWidth = minLineWidth
	}
}
