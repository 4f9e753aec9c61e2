package assert

import "fmt"

// NotNil panics if value is nil, name identifies the value in the message.
func NotNil(value any, name string) {
	if value == nil {
		panic(fmt.Sprintf("expected %s to be not nil", name))
	}
}

// NotEmptyStr panics if str is empty.
func NotEmptyStr(str string, name string) {
	if str == "" {
		panic(fmt.Sprintf("expected %s to be a non-empty string", name))
	}
}

// True panics with msg if cond is false.
func True(cond bool, msg string) {
	if !cond {
		panic(msg)
	}
}
