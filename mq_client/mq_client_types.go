package mq_client

type Queue struct {
	Name    string `yaml:"name"`
	Durable bool   `yaml:"durable"`
}

type Exchange struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type Binding struct {
	Queue      string `yaml:"queue"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

type MQClientConfig struct {
	Exchanges map[string]Exchange `yaml:"exchanges"`
	Queues    map[string]Queue    `yaml:"queues"`
	Bindings  map[string]Binding  `yaml:"bindings"`
}
