package domain

// ViewState is what the presentation layer renders.
type ViewState string

const (
	ViewNoProvider    ViewState = "no-provider"
	ViewDisconnected  ViewState = "disconnected"
	ViewConnecting    ViewState = "connecting"
	ViewConnectedIdle ViewState = "connected-idle"
	ViewMinting       ViewState = "minting"
	ViewMinted        ViewState = "minted"
	ViewError         ViewState = "error"
)

// View is the presentation-facing derivation of both state machines.
type View struct {
	State      ViewState `json:"state"`
	Message    string    `json:"message,omitempty"`
	CanConnect bool      `json:"can_connect"`
	CanMint    bool      `json:"can_mint"`
	TokenID    *uint64   `json:"token_id,omitempty"`
}

// DeriveView computes the single current view from the connectivity and
// mint states. It is a pure function.
func DeriveView(conn ConnectivityState, mint MintState) View {
	var v View

	switch {
	case conn.Error.HasKind(ErrorProviderMissing):
		v.State = ViewNoProvider
		v.Message = conn.Error.Error()

	case conn.IsBusy || conn.Phase == PhaseChecking || conn.Phase == PhaseUninitialized:
		v.State = ViewConnecting

	case conn.Error != nil && !conn.Error.HasKind(ErrorNoAccount):
		v.State = ViewError
		v.Message = conn.Error.Error()
		// request-failed leaves connect re-invokable; wrong-network blocks
		// both actions.
		v.CanConnect = conn.Error.HasKind(ErrorRequestFailed)

	case conn.Account == "":
		v.State = ViewDisconnected
		v.CanConnect = conn.ProviderPresent
		if conn.Error != nil {
			v.Message = conn.Error.Error()
		}

	case mint.Status.InFlight():
		v.State = ViewMinting

	case mint.Status == MintStatusFailed:
		v.State = ViewError
		v.CanMint = mint.Bound
		if mint.Error != nil {
			v.Message = mint.Error.Error()
		}

	case mint.Status == MintStatusMinted:
		v.State = ViewMinted
		v.CanMint = mint.Bound
		v.TokenID = mint.MintedTokenID

	default:
		v.State = ViewConnectedIdle
		v.CanMint = mint.Bound
		if mint.Error != nil {
			v.Message = mint.Error.Error()
		}
	}

	return v
}
