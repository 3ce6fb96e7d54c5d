package rabbitmq

// QueueConfig очередь и ключ маршрутизации, по которому она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetEventQueues очереди доменных событий шлюза. Обменник типа topic,
// поэтому ключи задаются шаблонами.
func GetEventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "aihub.usage", RoutingKey: "usage.*"},
		{QueueName: "aihub.subscriptions", RoutingKey: "subscription.*"},
		{QueueName: "aihub.users", RoutingKey: "user.*"},
	}
}
