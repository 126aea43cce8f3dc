/*
Copyright © 2024 Red Hat, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package kafka mirrors alert events to a Kafka topic so other systems
// (dashboards, audit) can consume the same stream the incident system gets.
//
// Every record is keyed by the deduplication key of the event. With the hash
// partitioner all trigger and resolve events of one batch land on the same
// partition and keep their order.
package kafka

import (
	"crypto/sha512"
	"strings"

	tlsutils "github.com/RedHatInsights/insights-operator-utils/tls"
	"github.com/Shopify/sarama"
	"github.com/rs/zerolog/log"

	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/types"
)

// Record headers attached to every mirrored event
const (
	ActionHeader      = "event_action"
	ContentTypeHeader = "content-type"
	ContentType       = "application/json"
)

const producerRetries = 3

// Producer mirrors alert events into configured topic
type Producer struct {
	Configuration conf.KafkaConfiguration
	Producer      sarama.SyncProducer
}

// New constructs Kafka mirror of alert events
func New(config *conf.ConfigStruct) (*Producer, error) {
	kafkaConfig := conf.GetKafkaBrokerConfiguration(config)

	saramaConfig, err := SaramaConfigFromBrokerConfig(&kafkaConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create a valid Kafka configuration")
		return nil, err
	}

	addresses := strings.Split(kafkaConfig.Addresses, ",")
	syncProducer, err := sarama.NewSyncProducer(addresses, saramaConfig)
	if err != nil {
		log.Error().Strs("brokers", addresses).Err(err).Msg("Unable to connect to alert events topic")
		return nil, err
	}

	return &Producer{
		Configuration: kafkaConfig,
		Producer:      syncProducer,
	}, nil
}

// NewMessage turns alert event into Kafka record for the given topic
func NewMessage(topic string, msg types.ProducerMessage) *sarama.ProducerMessage {
	record := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(msg.Value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(ContentTypeHeader), Value: []byte(ContentType)},
		},
	}
	// records without key are spread over partitions by sarama
	if msg.Key != "" {
		record.Key = sarama.StringEncoder(msg.Key)
	}
	if msg.Action != "" {
		record.Headers = append(record.Headers,
			sarama.RecordHeader{Key: []byte(ActionHeader), Value: []byte(msg.Action)})
	}
	return record
}

// ProduceMessage mirrors one alert event. It returns partition and offset
// the record was written to.
func (producer *Producer) ProduceMessage(msg types.ProducerMessage) (partitionID int32, offset int64, err error) {
	if !producer.Configuration.Enabled {
		return
	}

	partitionID, offset, err = producer.Producer.SendMessage(NewMessage(producer.Configuration.Topic, msg))
	if err != nil {
		log.Error().
			Err(err).
			Str("topic", producer.Configuration.Topic).
			Str("dedup_key", msg.Key).
			Msg("Unable to mirror alert event")
		return
	}

	log.Debug().
		Str("dedup_key", msg.Key).
		Str("action", msg.Action).
		Int32("partition", partitionID).
		Int64("offset", offset).
		Msg("Alert event mirrored")
	return
}

// Close flushes and closes the underlying sync producer
func (producer *Producer) Close() error {
	log.Info().Str("topic", producer.Configuration.Topic).Msg("Closing alert events mirror")
	if err := producer.Producer.Close(); err != nil {
		log.Error().Err(err).Msg("Unable to close alert events mirror")
		return err
	}
	return nil
}

// SaramaConfigFromBrokerConfig returns Sarama configuration for the given
// broker configuration. Records are partitioned by key hash and every
// in-sync replica has to acknowledge them.
func SaramaConfigFromBrokerConfig(cfg *conf.KafkaConfiguration) (*sarama.Config, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_6_0_0
	saramaConfig.ClientID = "argo-notification-service"

	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = producerRetries
	// needed by sync producer
	saramaConfig.Producer.Return.Successes = true

	if cfg.Timeout > 0 {
		saramaConfig.Net.DialTimeout = cfg.Timeout
		saramaConfig.Net.ReadTimeout = cfg.Timeout
		saramaConfig.Net.WriteTimeout = cfg.Timeout
		saramaConfig.Producer.Timeout = cfg.Timeout
	}

	protocol := strings.ToUpper(cfg.SecurityProtocol)
	saramaConfig.Net.TLS.Enable = strings.HasSuffix(protocol, "SSL")

	switch {
	case protocol == "SSL" && cfg.CertPath != "":
		tlsConfig, err := tlsutils.NewTLSConfig(cfg.CertPath)
		if err != nil {
			log.Error().Str("cert", cfg.CertPath).Msg("Unable to load TLS config")
			return nil, err
		}
		saramaConfig.Net.TLS.Config = tlsConfig
	case strings.HasPrefix(protocol, "SASL_"):
		configureSASL(saramaConfig, cfg)
	}

	return saramaConfig, nil
}

func configureSASL(saramaConfig *sarama.Config, cfg *conf.KafkaConfiguration) {
	log.Info().Str("mechanism", cfg.SaslMechanism).Msg("Configuring SASL authentication")
	saramaConfig.Net.SASL.Enable = true
	saramaConfig.Net.SASL.User = cfg.SaslUsername
	saramaConfig.Net.SASL.Password = cfg.SaslPassword
	saramaConfig.Net.SASL.Mechanism = sarama.SASLMechanism(cfg.SaslMechanism)

	if strings.EqualFold(cfg.SaslMechanism, sarama.SASLTypeSCRAMSHA512) {
		saramaConfig.Net.SASL.Handshake = true
		saramaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &SCRAMClient{HashGeneratorFcn: sha512.New}
		}
	}
}
