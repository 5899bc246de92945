package mqtt

import "testing"

func TestBrokerURL(t *testing.T) {
	t.Setenv("MQTT_URL", "tcp://broker.venue.lan:1883")
	if got := BrokerURL(); got != "tcp://broker.venue.lan:1883" {
		t.Errorf("BrokerURL = %q", got)
	}

	t.Setenv("MQTT_URL", "")
	if got := BrokerURL(); got != "tcp://localhost:1883" {
		t.Errorf("BrokerURL default = %q", got)
	}
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Op: "publish", Topic: "controlroom/s1/clicks"}
	if err.Error() != "mqtt publish timeout: controlroom/s1/clicks" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	err = &TimeoutError{Op: "connect"}
	if err.Error() != "mqtt connect timeout" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
