package cli

import (
	"fmt"
	"time"

	"github.com/habiter/habiter/internal/habits"
)

type InitCmd struct{}

func (c *InitCmd) Run(ctx *Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized storage at %s\n", ctx.Store.Path())
	return nil
}

type SetupCmd struct {
	Force bool `help:"Run generation even if setup never completed before."`
}

func (c *SetupCmd) Run(ctx *Context) error {
	status, err := ctx.Service.Setup(c.Force, time.Now())
	if err != nil {
		return err
	}

	switch status {
	case habits.SetupDeclined:
		fmt.Println("Setup has never run. Add your habits, then run 'habiter setup --force'.")
	case habits.SetupSatisfied:
		fmt.Println("Slots for this month are already generated.")
	case habits.SetupRan:
		fmt.Println("Generated slots for this month.")
	}
	return nil
}
