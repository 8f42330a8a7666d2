package bootstrap

import (
	"dental-triage-be/internal/config"
	"dental-triage-be/internal/controller"
	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/internal/repository/contract"
	"dental-triage-be/internal/repository/implementation"
	"dental-triage-be/internal/repository/unitofwork"
	"dental-triage-be/internal/service"
	"dental-triage-be/internal/websocket"
	"dental-triage-be/pkg/events"
	"dental-triage-be/pkg/imageai"
	pktNats "dental-triage-be/pkg/nats"
	"dental-triage-be/pkg/rag/executor"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const ReindexTopic = "knowledge.reindex"

type Container struct {
	Logger logger.ILogger

	// Controllers
	ChatController      controller.IChatController
	KnowledgeController controller.IKnowledgeController
	ImageController     controller.IImageController
	ChatSocketHandler   *websocket.ChatSocketHandler

	// Background services, run by main
	ConsumerService service.IConsumerService
	AuditService    service.IAuditService
	WebSocketHub    *websocket.Hub

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	uowFactory := unitofwork.NewRepositoryFactory(db)

	// Job queue
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)

	embeddingProvider, err := NewEmbeddingProvider(cfg, sysLogger)
	if err != nil {
		return nil, err
	}
	llmProvider, err := NewLLMProvider(cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	rdb := NewRedisClient(cfg, sysLogger)
	sessionRepo, err := NewSessionRepository(cfg, rdb)
	if err != nil {
		return nil, err
	}

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { _ = sessionRepo.Close() }, func() { _ = pubSub.Close() })
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// NATS is optional; without it events are dropped
	var eventPublisher events.Publisher = events.NopPublisher{}
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn(moduleName, "Failed to connect to NATS publisher, events disabled", map[string]interface{}{"error": err.Error()})
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	var auditSubscriber service.EventSubscriber
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn(moduleName, "Failed to connect to NATS subscriber, emergency audit disabled", map[string]interface{}{"error": err.Error()})
	} else {
		auditSubscriber = natsSub
		c.closers = append(c.closers, natsSub.Close)
	}

	var chunkRepo contract.KnowledgeChunkRepository = implementation.NewKnowledgeChunkRepository(db)
	retriever := NewRetriever(cfg, chunkRepo, embeddingProvider, sysLogger)
	engine := executor.NewEngine(llmProvider, retriever, executor.Options{GeneralReply: cfg.Ai.GeneralReply}, sysLogger)

	// Services
	triageService := service.NewTriageService(engine, sessionRepo, eventPublisher, sysLogger)
	ingestService := service.NewIngestService(uowFactory, embeddingProvider, sysLogger)
	publisherService := service.NewPublisherService(ReindexTopic, pubSub)
	knowledgeService := service.NewKnowledgeService(publisherService, ingestService, uowFactory, ReindexTopic)
	imageService := service.NewImageService(imageai.NewClient(cfg.App.ImageAIURL), triageService)

	c.ConsumerService = service.NewConsumerService(pubSub, ReindexTopic, cfg.App.DataDir, ingestService, eventPublisher, sysLogger)
	c.AuditService = service.NewAuditService(auditSubscriber, sysLogger)

	// Chat socket
	wsLogger := logger.NewIsolatedLogger(cfg.App.SocketLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, uuid.NewString(), wsLogger)
	c.ChatSocketHandler = websocket.NewChatSocketHandler(c.WebSocketHub, triageService)

	// Controllers
	c.ChatController = controller.NewChatController(triageService)
	c.KnowledgeController = controller.NewKnowledgeController(knowledgeService, cfg.App.JwtSecret)
	c.ImageController = controller.NewImageController(imageService)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
