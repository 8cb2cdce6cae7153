package request

type SetBlockingRequest struct {
	IsEnabled *bool  `json:"is_enabled"`
	Mode      string `json:"mode,omitempty"` // optional, "delete" or "blur"
}

type SetModeRequest struct {
	Mode string `json:"mode"`
}
