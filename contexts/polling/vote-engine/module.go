package voteengine

import (
	"log/slog"

	httpadapter "pollstream/contexts/polling/vote-engine/adapters/http"
	"pollstream/contexts/polling/vote-engine/adapters/memory"
	"pollstream/contexts/polling/vote-engine/application/commands"
	"pollstream/contexts/polling/vote-engine/application/queries"
	"pollstream/contexts/polling/vote-engine/domain/entities"
	"pollstream/contexts/polling/vote-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Ballots commands.BallotUseCase
	Polls   commands.PollUseCase
	Store   *memory.Store
}

type Dependencies struct {
	Polls          ports.PollRepository
	Ledger         ports.BallotLedger
	Broadcast      ports.Broadcaster
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	CommitAttempts int
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	ballotUseCase := commands.BallotUseCase{
		Polls:          deps.Polls,
		Ledger:         deps.Ledger,
		Broadcast:      deps.Broadcast,
		Outbox:         deps.Outbox,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		CommitAttempts: deps.CommitAttempts,
		Logger:         deps.Logger,
	}
	pollUseCase := commands.PollUseCase{
		Polls:  deps.Polls,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Polls:  deps.Polls,
		Ledger: deps.Ledger,
		Clock:  deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Ballots: ballotUseCase,
			Polls:   pollUseCase,
			Results: resultsUseCase,
			Logger:  deps.Logger,
		},
		Ballots: ballotUseCase,
		Polls:   pollUseCase,
	}
}

func NewInMemoryModule(seed []entities.Poll, broadcast ports.Broadcaster, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Polls:     store,
		Ledger:    store,
		Broadcast: broadcast,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
