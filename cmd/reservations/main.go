package main

import (
	reservationsconfig "examslots/internal/reservations/config"
	"examslots/internal/reservations/events"
	"examslots/internal/reservations/handler"
	"examslots/internal/reservations/repository"
	"examslots/internal/reservations/service"
	"examslots/internal/reservations/validator"
	"examslots/pkg/app"
	"examslots/pkg/config"
	"examslots/pkg/kafka"
	kafka_config "examslots/pkg/kafka/config"
	kafka_middleware "examslots/pkg/kafka/middleware"
)

const ServiceName = "slot-reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()

	store, err := repository.NewReservationStore(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to create reservation store", "error", err)
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	serverApp := app.NewApplication(cfg)
	metrics := kafka_middleware.NewMetrics()

	reservationValidator := validator.NewReservationValidator(cfg.Log)
	opts := []service.Option{}
	if kafkaCfg.Enabled {
		producer := newEventProducer(cfg, kafkaCfg, metrics)
		serverApp.OnShutdown("slot event producer", producer.Close)
		opts = append(opts, service.WithEventPublisher(events.NewPublisher(producer)))
	} else {
		metrics = nil
		cfg.Log.Info("Kafka disabled, slot events will not be published")
	}

	reservationService := service.NewSlotReservationService(
		store,
		reservationsconfig.NewEnvProvider(cfg.Log),
		reservationValidator,
		cfg.Log,
		opts...,
	)
	bookingSlots := service.NewBookingSlots(reservationService, cfg.Log)
	cfg.Log.Info("Slot reservation service initialized", "store_backend", cfg.StoreBackend)

	if sweeper, ok := store.(repository.Sweeper); ok {
		serverApp.AddWorker("expiry sweeper", service.NewExpirySweeper(sweeper, cfg.SweepInterval, cfg.Log).Run)
	}

	if kafkaCfg.Enabled && kafkaCfg.BookingWorkflowTopic != "" {
		consumer := newWorkflowConsumer(cfg, kafkaCfg, metrics, events.NewWorkflowHandler(bookingSlots, cfg.Log))
		serverApp.AddWorker("booking workflow consumer", consumer.Start)
		serverApp.OnShutdown("booking workflow consumer", consumer.Close)
	}

	serverApp.SetApp(
		handler.NewHealthHandler(store, cfg.StoreBackend, metrics, cfg.Log),
		handler.NewReservationHandler(bookingSlots, reservationService, reservationValidator, cfg.Log),
	)
	if err := serverApp.Run(); err != nil {
		cfg.Log.Fatal("Slot reservation service stopped with error", "error", err)
	}
}

func newEventProducer(cfg *config.Config, kafkaCfg *kafka_config.Config, metrics *kafka_middleware.Metrics) *kafka.Producer {
	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.ReservationEventsTopic, kafkaCfg.ReservationEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create slot event producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(metrics.ProducerMiddleware())
	}
	cfg.Log.Info("Slot event producer ready", "topic", producer.Topic())
	return producer
}

func newWorkflowConsumer(cfg *config.Config, kafkaCfg *kafka_config.Config, metrics *kafka_middleware.Metrics, workflow *events.WorkflowHandler) *kafka.Consumer {
	consumer, err := kafka.NewConsumer(kafkaCfg, kafkaCfg.BookingWorkflowTopic, kafkaCfg.ConsumerGroup, kafkaCfg.BookingWorkflowDLQTopic, workflow.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create booking workflow consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(metrics.ConsumerMiddleware())
	}
	return consumer
}
