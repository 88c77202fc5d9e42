package ocrsvc

import "testing"

func TestDockerConfigDefaults(t *testing.T) {
	if DefaultContainerName != "textbookd-mineru" {
		t.Errorf("unexpected default container name: %s", DefaultContainerName)
	}
	if DefaultPort != "8000" {
		t.Errorf("unexpected default port: %s", DefaultPort)
	}
	if ContainerPort != "8000/tcp" {
		t.Errorf("unexpected container port: %s", ContainerPort)
	}
}

func TestManagerDefaults(t *testing.T) {
	m, err := NewDockerManager(DockerConfig{})
	if err != nil {
		t.Skipf("docker client unavailable: %v", err)
	}
	defer m.Close()

	if m.containerName != DefaultContainerName {
		t.Errorf("container name = %q", m.containerName)
	}
	if m.imageName != DefaultImage {
		t.Errorf("image = %q", m.imageName)
	}
	if m.URL() != "http://localhost:8000" {
		t.Errorf("url = %q", m.URL())
	}
	if m.labels[Label] != "true" {
		t.Error("default label missing")
	}
}

func TestManagerCustomPort(t *testing.T) {
	m, err := NewDockerManager(DockerConfig{HostPort: "9000"})
	if err != nil {
		t.Skipf("docker client unavailable: %v", err)
	}
	defer m.Close()

	if m.URL() != "http://localhost:9000" {
		t.Errorf("url = %q", m.URL())
	}
}
