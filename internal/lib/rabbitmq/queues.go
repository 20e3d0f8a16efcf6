package rabbitmq

// Ключи маршрутизации событий доступа.
const (
	RoutingTrialStarted = "access.trial_started"
	RoutingUpgraded     = "access.upgraded"
)

// QueueConfig описывает очередь и ключ, с которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// AccessEventQueues возвращает очереди событий доступа.
func AccessEventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "access.trial_started", RoutingKey: RoutingTrialStarted},
		{QueueName: "access.upgraded", RoutingKey: RoutingUpgraded},
	}
}
