package bus

// MethodKey declares a method slot carrying a request and response type.
// Declare one as a package-level variable and share it by import:
//
//	var Head = bus.NewMethodKey[HeadQuery, HeadInfo]("chain.head")
//
// The name must be unique across the process; the payload types travel with
// the key, so a provider and its callers agree on the signature at compile
// time.
type MethodKey[Req, Resp any] struct {
	name string
}

// NewMethodKey creates a method declaration with the given slot name.
func NewMethodKey[Req, Resp any](name string) *MethodKey[Req, Resp] {
	if name == "" {
		panic("bus: method key name must not be empty")
	}
	return &MethodKey[Req, Resp]{name: name}
}

// Name returns the slot name.
func (k *MethodKey[Req, Resp]) Name() string { return k.name }

// ChannelKey declares a broadcast channel slot carrying one event type.
type ChannelKey[T any] struct {
	name string
}

// NewChannelKey creates a channel declaration with the given slot name.
func NewChannelKey[T any](name string) *ChannelKey[T] {
	if name == "" {
		panic("bus: channel key name must not be empty")
	}
	return &ChannelKey[T]{name: name}
}

// Name returns the slot name.
func (k *ChannelKey[T]) Name() string { return k.name }
