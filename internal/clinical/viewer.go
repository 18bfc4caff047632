package clinical

// Viewer identifies the renderer a report body is dispatched to.
type Viewer string

const (
	ViewerPDF         Viewer = "pdf"
	ViewerImage       Viewer = "image"
	ViewerDICOM       Viewer = "dicom"
	ViewerLink        Viewer = "link"
	ViewerText        Viewer = "text"
	ViewerLiveSession Viewer = "live_session"
	ViewerUnsupported Viewer = "unsupported"
)

// UnsupportedFormatText is shown for reports whose content does not match their type.
const UnsupportedFormatText = "This report format cannot be displayed."

// ViewerFor picks the renderer for a report. Reports whose content shape
// disagrees with their type get ViewerUnsupported.
func ViewerFor(r Report) Viewer {
	if r.Content == nil || !contentMatches(r.Type, r.Content) {
		return ViewerUnsupported
	}
	switch c := r.Content.(type) {
	case TextContent:
		return ViewerText
	case LiveSessionContent:
		return ViewerLiveSession
	case AttachmentContent:
		switch c.Kind {
		case AttachmentPDF:
			return ViewerPDF
		case AttachmentImage:
			return ViewerImage
		case AttachmentDICOM:
			return ViewerDICOM
		case AttachmentLink:
			return ViewerLink
		}
	}
	return ViewerUnsupported
}

// View is the payload returned to a client opening a report.
type View struct {
	Viewer  Viewer `json:"viewer"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	URL     string `json:"url,omitempty"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// Render resolves a report into the payload its viewer needs.
func Render(r Report) View {
	v := View{Viewer: ViewerFor(r), Title: r.Title, Date: r.Date}
	switch v.Viewer {
	case ViewerUnsupported:
		v.Message = UnsupportedFormatText
	case ViewerText:
		v.Text = string(r.Content.(TextContent))
	case ViewerLiveSession:
		v.Text = r.Content.(LiveSessionContent).Transcript
	default:
		att := r.Content.(AttachmentContent)
		v.URL = att.URL
		v.Text = att.RawText
	}
	return v
}
