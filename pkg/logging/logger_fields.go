package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain field helpers

func Component(name string) Field {
	return String("component", name)
}

func Definition(name string) Field {
	return String("definition", name)
}

func Op(op string) Field {
	return String("op", op)
}

func NodeIndex(i int) Field {
	return Int("node_index", i)
}

func Offset(off int) Field {
	return Int("offset", off)
}

func Control(name string) Field {
	return String("control", name)
}

func ControlIndex(i int) Field {
	return Int("control_index", i)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Bytes(n int) Field {
	return Int("bytes", n)
}

func Path(p string) Field {
	return String("path", p)
}
