package tests

import "fmt"

func wsURL(port uint16) string {
	return fmt.Sprintf("ws://127.0.0.1:%d/", port)
}
