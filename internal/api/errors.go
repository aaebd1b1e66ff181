package api

import "fmt"

func errUnknownEffect(name string) error {
	return fmt.Errorf("api: unknown effect %q", name)
}

func errUnknownGamingMode(mode string) error {
	return fmt.Errorf("api: unknown gaming mode %q", mode)
}
