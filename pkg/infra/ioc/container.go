package ioc

import (
	"context"
	"log/slog"
	"os"
	"time"

	// env
	"github.com/joho/godotenv"

	// mongodb
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	// redis
	"github.com/redis/go-redis/v9"

	"github.com/google/uuid"

	// container
	container "github.com/golobby/container/v3"

	// ports
	common "github.com/matchcore/core/pkg/domain"

	lobbyin "github.com/matchcore/core/pkg/domain/lobby/ports/in"
	lobbyout "github.com/matchcore/core/pkg/domain/lobby/ports/out"
	lobbyservices "github.com/matchcore/core/pkg/domain/lobby/services"
	lobbyusecases "github.com/matchcore/core/pkg/domain/lobby/usecases"

	mmin "github.com/matchcore/core/pkg/domain/matchmaking/ports/in"
	mmout "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
	mmservices "github.com/matchcore/core/pkg/domain/matchmaking/services"

	notifyout "github.com/matchcore/core/pkg/domain/notification/ports/out"

	userout "github.com/matchcore/core/pkg/domain/user/ports/out"

	// app
	mmapp "github.com/matchcore/core/pkg/app/matchmaking"

	// infra adapters
	db "github.com/matchcore/core/pkg/infra/db/mongodb"
	"github.com/matchcore/core/pkg/infra/lock"
	"github.com/matchcore/core/pkg/infra/notify"
	socket "github.com/matchcore/core/pkg/infra/websocket"
)

type ContainerBuilder struct {
	container.Container
}

func NewContainerBuilder() *ContainerBuilder {
	c := container.New()

	b := &ContainerBuilder{
		c,
	}

	err := c.Singleton(func() container.Container {
		return b.Container
	})

	if err != nil {
		slog.Error("Failed to register *container.Container in NewContainerBuilder.")
		panic(err)
	}

	err = c.Singleton(func() *ContainerBuilder {
		return b
	})

	if err != nil {
		slog.Error("Failed to register *ContainerBuilder in NewContainerBuilder.")
		panic(err)
	}

	return b
}

func (b *ContainerBuilder) Build() container.Container {
	return b.Container
}

func (b *ContainerBuilder) WithEnvFile() *ContainerBuilder {
	if os.Getenv("DEV_ENV") == "true" {
		err := godotenv.Load()
		if err != nil {
			slog.Error("Failed to load .env file")
			panic(err)
		}
	}

	err := b.Container.Singleton(func() (common.Config, error) {
		return EnvironmentConfig()
	})

	if err != nil {
		slog.Error("Failed to load EnvironmentConfig.")
		panic(err)
	}

	return b
}

// WithStorage wires the MongoDB client and the five per-aggregate stores
// behind their ports/out interfaces. This is the first layer in spec.md
// §9's initialization order: storage before anything that reads/writes it.
func WithStorage(c container.Container) error {
	err := c.Singleton(func() (*mongo.Client, error) {
		var config common.Config
		if err := c.Resolve(&config); err != nil {
			slog.Error("Failed to resolve config for mongo.Client.", "err", err)
			return nil, err
		}

		mongoOptions := options.Client().ApplyURI(config.Mongo.URI)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, mongoOptions)
		if err != nil {
			slog.Error("Failed to connect to MongoDB.", "err", err)
			return nil, err
		}

		return client, nil
	})
	if err != nil {
		slog.Error("Failed to load mongo.Client.", "err", err)
		return err
	}

	err = c.Singleton(func() (*mongo.Database, error) {
		var config common.Config
		if err := c.Resolve(&config); err != nil {
			return nil, err
		}
		var client *mongo.Client
		if err := c.Resolve(&client); err != nil {
			return nil, err
		}
		return client.Database(config.Mongo.DBName), nil
	})
	if err != nil {
		slog.Error("Failed to load mongo.Database.", "err", err)
		return err
	}

	err = c.Singleton(func() (mmout.RequestStore, error) {
		var d *mongo.Database
		if err := c.Resolve(&d); err != nil {
			return nil, err
		}
		return db.NewRequestStore(d), nil
	})
	if err != nil {
		slog.Error("Failed to load mmout.RequestStore.", "err", err)
		return err
	}

	err = c.Singleton(func() (mmout.HistoryStore, error) {
		var d *mongo.Database
		if err := c.Resolve(&d); err != nil {
			return nil, err
		}
		return db.NewHistoryStore(d), nil
	})
	if err != nil {
		slog.Error("Failed to load mmout.HistoryStore.", "err", err)
		return err
	}

	err = c.Singleton(func() (lobbyout.LobbyStore, error) {
		var d *mongo.Database
		if err := c.Resolve(&d); err != nil {
			return nil, err
		}
		return db.NewLobbyStore(d), nil
	})
	if err != nil {
		slog.Error("Failed to load lobbyout.LobbyStore.", "err", err)
		return err
	}

	err = c.Singleton(func() (lobbyout.ChatStore, error) {
		var d *mongo.Database
		if err := c.Resolve(&d); err != nil {
			return nil, err
		}
		return db.NewChatStore(d), nil
	})
	if err != nil {
		slog.Error("Failed to load lobbyout.ChatStore.", "err", err)
		return err
	}

	err = c.Singleton(func() (userout.UserReader, error) {
		var d *mongo.Database
		if err := c.Resolve(&d); err != nil {
			return nil, err
		}
		return db.NewUserStore(d), nil
	})
	if err != nil {
		slog.Error("Failed to load userout.UserReader.", "err", err)
		return err
	}

	return nil
}

// WithLockManager wires the LockManager, selecting Redis or the in-memory
// fallback per Config.Lock.Backend.
func WithLockManager(c container.Container) error {
	err := c.Singleton(func() (mmout.LockManager, error) {
		var config common.Config
		if err := c.Resolve(&config); err != nil {
			return nil, err
		}

		if config.Lock.Backend == "redis" {
			client := redis.NewClient(&redis.Options{
				Addr:     config.Redis.Addr,
				Password: config.Redis.Password,
				DB:       config.Redis.DB,
			})
			return lock.NewRedisLockManager(client, "matchcore:lock:"), nil
		}

		return lock.NewInMemoryLockManager(), nil
	})
	if err != nil {
		slog.Error("Failed to load mmout.LockManager.", "err", err)
		return err
	}
	return nil
}

// WithQueueManager wires the single process-lifetime QueueManager instance
// every matchmaking component shares.
func WithQueueManager(c container.Container) error {
	err := c.Singleton(func() *mmservices.QueueManager {
		return mmservices.NewQueueManager()
	})
	if err != nil {
		slog.Error("Failed to load *mmservices.QueueManager.", "err", err)
		return err
	}
	return nil
}

// WithSocketHub wires the single SocketHub instance behind both broadcaster
// ports it implements.
func WithSocketHub(c container.Container) error {
	err := c.Singleton(func() (*socket.SocketHub, error) {
		var users userout.UserReader
		if err := c.Resolve(&users); err != nil {
			return nil, err
		}
		return socket.NewSocketHub(users), nil
	})
	if err != nil {
		slog.Error("Failed to load *socket.SocketHub.", "err", err)
		return err
	}

	err = c.Singleton(func() (mmout.MatchmakingBroadcaster, error) {
		var hub *socket.SocketHub
		if err := c.Resolve(&hub); err != nil {
			return nil, err
		}
		return hub, nil
	})
	if err != nil {
		slog.Error("Failed to load mmout.MatchmakingBroadcaster.", "err", err)
		return err
	}

	err = c.Singleton(func() (lobbyout.LobbyBroadcaster, error) {
		var hub *socket.SocketHub
		if err := c.Resolve(&hub); err != nil {
			return nil, err
		}
		return hub, nil
	})
	if err != nil {
		slog.Error("Failed to load lobbyout.LobbyBroadcaster.", "err", err)
		return err
	}

	return nil
}

// WithNotificationTrigger wires the in-process worker-pool NotificationTrigger.
// The deliver sink here only logs; a real push/email/in-app fanout would
// replace it without touching the rest of the wiring.
func WithNotificationTrigger(c container.Container) error {
	err := c.Singleton(func() notifyout.NotificationTrigger {
		return notify.NewWorkerPoolTrigger(context.Background(), 4, 256, func(ctx context.Context, userID uuid.UUID, n notifyout.Notification) error {
			slog.InfoContext(ctx, "notification delivered", "user_id", userID, "type", n.Type)
			return nil
		})
	})
	if err != nil {
		slog.Error("Failed to load notifyout.NotificationTrigger.", "err", err)
		return err
	}
	return nil
}

// WithLobbyEngine wires LobbyEngine on top of storage, the user reader, and
// the lobby broadcaster.
func WithLobbyEngine(c container.Container) error {
	err := c.Singleton(func() (*lobbyservices.LobbyEngine, error) {
		var lobbies lobbyout.LobbyStore
		if err := c.Resolve(&lobbies); err != nil {
			return nil, err
		}
		var chats lobbyout.ChatStore
		if err := c.Resolve(&chats); err != nil {
			return nil, err
		}
		var users userout.UserReader
		if err := c.Resolve(&users); err != nil {
			return nil, err
		}
		var broadcaster lobbyout.LobbyBroadcaster
		if err := c.Resolve(&broadcaster); err != nil {
			return nil, err
		}
		return lobbyservices.NewLobbyEngine(lobbies, chats, users, broadcaster), nil
	})
	if err != nil {
		slog.Error("Failed to load *lobbyservices.LobbyEngine.", "err", err)
		return err
	}

	err = c.Singleton(func() (lobbyin.JoinLobbyUseCase, error) {
		var engine *lobbyservices.LobbyEngine
		if err := c.Resolve(&engine); err != nil {
			return nil, err
		}
		return lobbyusecases.NewJoinLobbyUseCase(engine), nil
	})
	if err != nil {
		return err
	}

	err = c.Singleton(func() (lobbyin.LeaveLobbyUseCase, error) {
		var engine *lobbyservices.LobbyEngine
		if err := c.Resolve(&engine); err != nil {
			return nil, err
		}
		return lobbyusecases.NewLeaveLobbyUseCase(engine), nil
	})
	if err != nil {
		return err
	}

	err = c.Singleton(func() (lobbyin.SetMemberReadyUseCase, error) {
		var engine *lobbyservices.LobbyEngine
		if err := c.Resolve(&engine); err != nil {
			return nil, err
		}
		return lobbyusecases.NewSetMemberReadyUseCase(engine), nil
	})
	if err != nil {
		return err
	}

	err = c.Singleton(func() (lobbyin.CloseLobbyUseCase, error) {
		var engine *lobbyservices.LobbyEngine
		if err := c.Resolve(&engine); err != nil {
			return nil, err
		}
		return lobbyusecases.NewCloseLobbyUseCase(engine), nil
	})
	if err != nil {
		return err
	}

	err = c.Singleton(func() (lobbyin.GetLobbyUseCase, error) {
		var engine *lobbyservices.LobbyEngine
		if err := c.Resolve(&engine); err != nil {
			return nil, err
		}
		return lobbyusecases.NewGetLobbyUseCase(engine), nil
	})
	if err != nil {
		return err
	}

	err = c.Singleton(func() (lobbyin.GetUserLobbiesUseCase, error) {
		var engine *lobbyservices.LobbyEngine
		if err := c.Resolve(&engine); err != nil {
			return nil, err
		}
		return lobbyusecases.NewGetUserLobbiesUseCase(engine), nil
	})
	if err != nil {
		return err
	}

	err = c.Singleton(func() (lobbyin.SendChatMessageUseCase, error) {
		var engine *lobbyservices.LobbyEngine
		if err := c.Resolve(&engine); err != nil {
			return nil, err
		}
		return lobbyusecases.NewSendChatMessageUseCase(engine), nil
	})
	if err != nil {
		return err
	}

	return nil
}

// WithMatchmakingService wires the orchestrator last: it depends on
// storage, the queue, the user reader, the lock manager, the notification
// trigger, the matchmaking broadcaster, and LobbyEngine. This mirrors
// spec.md §9's stated initialization order: storage -> locks -> queue ->
// lobby engine -> matchmaking service -> socket hub consumer.
func WithMatchmakingService(c container.Container) error {
	err := c.Singleton(func() (*mmapp.MatchmakingService, error) {
		var config common.Config
		if err := c.Resolve(&config); err != nil {
			return nil, err
		}
		var requests mmout.RequestStore
		if err := c.Resolve(&requests); err != nil {
			return nil, err
		}
		var histories mmout.HistoryStore
		if err := c.Resolve(&histories); err != nil {
			return nil, err
		}
		var queue *mmservices.QueueManager
		if err := c.Resolve(&queue); err != nil {
			return nil, err
		}
		var users userout.UserReader
		if err := c.Resolve(&users); err != nil {
			return nil, err
		}
		var locks mmout.LockManager
		if err := c.Resolve(&locks); err != nil {
			return nil, err
		}
		var notifier notifyout.NotificationTrigger
		if err := c.Resolve(&notifier); err != nil {
			return nil, err
		}
		var broadcaster mmout.MatchmakingBroadcaster
		if err := c.Resolve(&broadcaster); err != nil {
			return nil, err
		}
		var lobbyEngine *lobbyservices.LobbyEngine
		if err := c.Resolve(&lobbyEngine); err != nil {
			return nil, err
		}

		return mmapp.NewMatchmakingService(
			requests, histories, queue, users, locks, notifier, broadcaster, lobbyEngine,
			config.Scheduler.TickInterval, config.Lock.TTL,
		), nil
	})
	if err != nil {
		slog.Error("Failed to load *mmapp.MatchmakingService.", "err", err)
		return err
	}

	err = c.Singleton(func() (mmin.SubmitMatchRequestUseCase, error) {
		var svc *mmapp.MatchmakingService
		if err := c.Resolve(&svc); err != nil {
			return nil, err
		}
		return mmapp.NewSubmitMatchRequestUseCase(svc), nil
	})
	if err != nil {
		return err
	}

	err = c.Singleton(func() (mmin.CancelMatchRequestUseCase, error) {
		var svc *mmapp.MatchmakingService
		if err := c.Resolve(&svc); err != nil {
			return nil, err
		}
		return mmapp.NewCancelMatchRequestUseCase(svc), nil
	})
	if err != nil {
		return err
	}

	err = c.Singleton(func() (mmin.GetCurrentMatchRequestUseCase, error) {
		var svc *mmapp.MatchmakingService
		if err := c.Resolve(&svc); err != nil {
			return nil, err
		}
		return mmapp.NewGetCurrentMatchRequestUseCase(svc), nil
	})
	if err != nil {
		return err
	}

	err = c.Singleton(func() (mmin.GetMatchHistoryUseCase, error) {
		var svc *mmapp.MatchmakingService
		if err := c.Resolve(&svc); err != nil {
			return nil, err
		}
		return mmapp.NewGetMatchHistoryUseCase(svc), nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (b *ContainerBuilder) With(resolver interface{}) *ContainerBuilder {
	c := b.Container

	err := c.Singleton(resolver)

	if err != nil {
		slog.Error("Failed to register resolver.", "err", err)
		panic(err)
	}

	return b
}
