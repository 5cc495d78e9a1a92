package contracts

import "github.com/julienschmidt/httprouter"

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Composite registers several handlers on one router.
type Composite []Handler

func (c Composite) RegisterRoutes(router *httprouter.Router) {
	for _, h := range c {
		h.RegisterRoutes(router)
	}
}
