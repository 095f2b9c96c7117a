package thimble

// Replace swaps whatever answers requests for T with provider. The previous
// provider is stopped, destroying its instances.
func Replace[T any](e *Environment, provider Provider[T], opts ...ProviderOption) error {
	if err := Remove[T](e, opts...); err != nil && !IsNotFound(err) {
		return err
	}
	return Provide(e, provider, opts...)
}

// ReplaceValue swaps whatever answers requests for T with value.
func ReplaceValue[T any](e *Environment, value T, opts ...ProviderOption) error {
	return ProvideValue(e, value, opts...)
}

func ReplaceNamed[T any](e *Environment, name string, provider Provider[T], opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return Replace(e, provider, opts...)
}

func ReplaceNamedValue[T any](e *Environment, name string, value T, opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return ReplaceValue(e, value, opts...)
}

func MustReplace[T any](e *Environment, provider Provider[T], opts ...ProviderOption) {
	if err := Replace(e, provider, opts...); err != nil {
		panic(err)
	}
}

func MustReplaceValue[T any](e *Environment, value T, opts ...ProviderOption) {
	if err := ReplaceValue(e, value, opts...); err != nil {
		panic(err)
	}
}
