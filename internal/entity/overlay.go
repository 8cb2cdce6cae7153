package entity

// Overlay describes the element placed over a blurred post.
type Overlay struct {
	Caption string
	Style   string
}

const overlayStyle = "position:absolute;top:0;left:0;width:100%;height:100%;" +
	"background:rgba(0,0,0,0.6);backdrop-filter:blur(24px);-webkit-backdrop-filter:blur(24px);" +
	"display:flex;align-items:center;justify-content:center;text-align:center;" +
	"color:#fff;font-weight:bold;cursor:pointer;z-index:10;"

// DefaultOverlay returns the overlay attached in blur mode.
func DefaultOverlay() Overlay {
	return Overlay{
		Caption: "Ghibli-style image hidden. Click to show.",
		Style:   overlayStyle,
	}
}
