package captions

// Innertube player API shapes. Only the fields the pipeline reads are declared.

type playerRequest struct {
	Context playerContext `json:"context"`
	VideoID string        `json:"videoId"`
}

type playerContext struct {
	Client playerClient `json:"client"`
}

type playerClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
}

type playerResponse struct {
	VideoDetails *struct {
		VideoID string `json:"videoId"`
	} `json:"videoDetails"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []Track `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

func (p *playerResponse) videoID() string {
	if p.VideoDetails == nil {
		return ""
	}
	return p.VideoDetails.VideoID
}

func (p *playerResponse) tracks() []Track {
	if p.Captions == nil {
		return nil
	}
	return p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

// Track is one caption stream offered for a video.
type Track struct {
	BaseURL      string    `json:"baseUrl"`
	LanguageCode string    `json:"languageCode"`
	Kind         string    `json:"kind,omitempty"` // "asr" = auto-generated
	Name         TrackName `json:"name"`
}

// TrackName carries the display label of a track.
type TrackName struct {
	SimpleText string `json:"simpleText"`
}
