package fxutil

import "go.uber.org/fx"

// AsIface annotates a constructor so its concrete result is provided as
// TIface. Used to wire concrete stores and servers behind their interfaces.
func AsIface[TIface any](constructor any) any {
	return fx.Annotate(constructor, fx.As(new(TIface)))
}

// Need forces the container to instantiate T even when nothing else
// depends on it.
func Need[T any](val T) {}
