package registrar

var constructors []any

func GetRegistered() []any {
	return constructors
}

// Register must be called from a package init function (or from main
// before Execute). It records a constructor to be provided to the
// dependency injection container; checks, datasources, environments and
// default strategies all arrive this way.
func Register(constructor any) {
	constructors = append(constructors, constructor)
}
