package events

import "go.uber.org/fx"

// Module provides the order event bus to the fx graph.
var Module = fx.Provide(NewBus)
