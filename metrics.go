package thimble

import (
	"time"
)

type ResolveHook func(key string, duration time.Duration, err error)

type ProvideHook func(key string)

type StartHook func(name string, duration time.Duration, err error)

type StopHook func(name string, duration time.Duration, err error)
