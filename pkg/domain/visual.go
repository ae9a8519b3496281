package domain

import "encoding/json"

// VisualType is the internal variant tag of a VisualTrace payload.
type VisualType string

const (
	VisualImage VisualType = "image"
	VisualAPL   VisualType = "apl"
)

// DeviceType names the device an image was laid out for.
type DeviceType string

// CanvasVisibility controls how an image is framed on the host canvas.
type CanvasVisibility string

const (
	CanvasFull    CanvasVisibility = "full"
	CanvasCropped CanvasVisibility = "cropped"
	CanvasHidden  CanvasVisibility = "hidden"
)

// Dimensions is the rendered size of an image.
type Dimensions struct {
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// Visual is one variant of a VisualTrace payload: ImageVisual or APLVisual.
type Visual interface {
	VisualType() VisualType
}

// ImageVisual is a plain image with layout hints.
type ImageVisual struct {
	Image            string           `json:"image,omitempty" mapstructure:"image"`
	Device           DeviceType       `json:"device,omitempty" mapstructure:"device"`
	Dimensions       *Dimensions      `json:"dimensions,omitempty" mapstructure:"dimensions"`
	CanvasVisibility CanvasVisibility `json:"canvasVisibility,omitempty" mapstructure:"canvasVisibility"`
}

// APLVisual is an Alexa Presentation Language document.
type APLVisual struct {
	Title        string `json:"title,omitempty" mapstructure:"title"`
	APLType      string `json:"aplType,omitempty" mapstructure:"aplType"`
	ImageURL     string `json:"imageURL,omitempty" mapstructure:"imageURL"`
	Document     string `json:"document,omitempty" mapstructure:"document"`
	Datasource   string `json:"datasource,omitempty" mapstructure:"datasource"`
	APLCommands  string `json:"aplCommands,omitempty" mapstructure:"aplCommands"`
	JSONFileName string `json:"jsonFileName,omitempty" mapstructure:"jsonFileName"`
}

func (ImageVisual) VisualType() VisualType { return VisualImage }
func (APLVisual) VisualType() VisualType { return VisualAPL }

// VisualTrace asks the host to display a visual. Variant is never nil for a parsed trace.
type VisualTrace struct {
	Variant Visual
}

// Subtype returns the variant tag, or "" when no variant is set.
func (v VisualTrace) Subtype() VisualType {
	if v.Variant == nil {
		return ""
	}
	return v.Variant.VisualType()
}

// MarshalJSON flattens the variant into the wire payload shape:
// {"visualType": "...", <variant fields>}.
func (v VisualTrace) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	if v.Variant != nil {
		raw, err := json.Marshal(v.Variant)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		fields["visualType"] = v.Variant.VisualType()
	}
	return json.Marshal(fields)
}
