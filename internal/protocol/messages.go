package protocol

// SUBSCRIBE (client -> server). First message on the connection; may be
// re-sent to change settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Every sends one WINDOW frame per Every ticks.
	Every int `json:"every,omitempty"`
	// Masks adds per-cell seen and light masks to each frame.
	Masks bool `json:"masks,omitempty"`
	// Terrain adds the active layer's terrain ids to each frame.
	Terrain bool `json:"terrain,omitempty"`
	// Observer is the window-local cell the masks are computed from.
	Observer   [2]int `json:"observer,omitempty"`
	SightRange int    `json:"sight_range,omitempty"`
}

// SHIFT (client -> server): move the window by whole chunks, optionally to
// another layer.
type ShiftMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	DX              int    `json:"dx"`
	DY              int    `json:"dy"`
	Layer           *int   `json:"layer,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	WindowParams    WindowParams   `json:"window_params"`
	Origin          [3]int         `json:"origin"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WindowParams struct {
	TickRateHz  int   `json:"tick_rate_hz"`
	WidthChunks int   `json:"width_chunks"`
	ChunkSize   int   `json:"chunk_size"`
	MinLayer    int   `json:"min_layer"`
	MaxLayer    int   `json:"max_layer"`
	Seed        int64 `json:"seed"`
}

type CatalogDigests struct {
	All       string    `json:"all"`
	Terrain   DigestRef `json:"terrain"`
	Furniture DigestRef `json:"furniture"`
	Fields    DigestRef `json:"fields"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// WINDOW (server -> client). One per subscribed tick.
type WindowMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Origin [3]int `json:"origin"`
	Layer  int    `json:"layer"`

	Fields     map[string]FieldTotal `json:"fields"`
	Vehicles   []VehicleState        `json:"vehicles"`
	Collisions int                   `json:"collisions,omitempty"`

	// Seen is a row-major bitset over the window, base64 in JSON. Light
	// (LitLevel per cell) and Terrain (terrain palette id per cell) are
	// row-major RLE layers.
	Seen    []byte `json:"seen,omitempty"`
	Light   string `json:"light,omitempty"`
	Terrain string `json:"terrain,omitempty"`
}

type FieldTotal struct {
	Count   int `json:"count"`
	Density int `json:"density"`
}

type VehicleState struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Pos      [3]int `json:"pos"`
	Facing   int    `json:"facing"`
	Velocity int    `json:"velocity"`
	Parts    int    `json:"parts"`
}

// ERROR (server -> client).
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
