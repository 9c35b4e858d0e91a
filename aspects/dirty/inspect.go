package dirty

import (
	"reflect"

	"github.com/glimte/weave-go/contracts"
)

var (
	// MissingSetter is reported for a type with DirtyState but no SetDirtyState method
	MissingSetter = contracts.DiagnosticDefinition{
		Code:     "MY001",
		Severity: contracts.SeverityError,
		Format:   "type '%s' implements DirtyState manually, but it has no SetDirtyState method",
	}

	// ValueReceiverSetter is reported for a SetDirtyState method with a value receiver
	ValueReceiverSetter = contracts.DiagnosticDefinition{
		Code:     "MY002",
		Severity: contracts.SeverityError,
		Format:   "the SetDirtyState method of '%s' must have a pointer receiver",
	}
)

var stateType = reflect.TypeFor[State]()

// Inspect checks that a type implementing DirtyState by hand can also be marked dirty.
// Pass the struct type or a pointer to it. Types without a DirtyState method are ignored.
// It returns false if any error was reported.
func Inspect(t reflect.Type, reporter contracts.DiagnosticReporter) bool {
	if t == nil {
		return true
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	ptr := reflect.PointerTo(t)
	location := t.String()

	getter, ok := ptr.MethodByName("DirtyState")
	if !ok || !isGetter(getter.Type) {
		return true
	}

	setter, ok := ptr.MethodByName("SetDirtyState")
	if !ok || !isSetter(setter.Type) {
		MissingSetter.Report(reporter, location, t.Name())
		return false
	}

	if _, ok := t.MethodByName("SetDirtyState"); ok && !embedsTracker(t) {
		ValueReceiverSetter.Report(reporter, location+".SetDirtyState", t.Name())
		return false
	}
	return true
}

// InspectValue is Inspect for the dynamic type of v
func InspectValue(v interface{}, reporter contracts.DiagnosticReporter) bool {
	return Inspect(reflect.TypeOf(v), reporter)
}

// method types from a method set include the receiver as the first input
func isGetter(m reflect.Type) bool {
	return m.NumIn() == 1 && m.NumOut() == 1 && m.Out(0) == stateType
}

func isSetter(m reflect.Type) bool {
	return m.NumIn() == 2 && m.In(1) == stateType && m.NumOut() == 0
}

// embedsTracker reports whether the setter is promoted from an embedded *Tracker, which
// shares state through the pointer
func embedsTracker(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	trackerPtr := reflect.TypeFor[*Tracker]()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == trackerPtr {
			return true
		}
	}
	return false
}
