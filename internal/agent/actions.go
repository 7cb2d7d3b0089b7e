package agent

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Action — одно именованное действие агента. Параметры приходят из
// полезной нагрузки запроса или из первой записи журнала задачи.
type Action interface {
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// ActionFunc — адаптер функции к Action.
type ActionFunc func(ctx context.Context, params map[string]any) (map[string]any, error)

// Execute вызывает f.
func (f ActionFunc) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	return f(ctx, params)
}

// Registry — реестр действий по имени.
type Registry struct {
	actions map[string]Action
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register добавляет действие.
func (r *Registry) Register(name string, action Action) {
	r.actions[name] = action
}

// Get возвращает действие по имени.
func (r *Registry) Get(name string) (Action, error) {
	action, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return action, nil
}

// ScriptConfig — пути локальных provisioning-скриптов хоста.
// Пустой путь означает, что действие на хосте недоступно.
type ScriptConfig struct {
	ProvisionCluster string
	UpdateCluster    string
}

// DefaultRegistry создаёт реестр со всеми действиями агента.
func DefaultRegistry(client *K8SClient, scripts ScriptConfig) *Registry {
	r := NewRegistry()

	r.Register("get_k8s_state", ActionFunc(func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		return client.State(ctx)
	}))

	r.Register("get_k8s_config", ActionFunc(func(_ context.Context, _ map[string]any) (map[string]any, error) {
		config, err := client.Kubeconfig()
		if err != nil {
			return nil, err
		}
		return map[string]any{"kubeconfig": config}, nil
	}))

	r.Register("get_k8s_resources", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		kind := getString(params, "resource", "")
		if kind == "" {
			return nil, fmt.Errorf("%w: resource is required", ErrBadParams)
		}
		names, err := client.ResourceNames(ctx, kind, getString(params, "namespace", ""))
		if err != nil {
			return nil, err
		}
		return map[string]any{"resources": names}, nil
	}))

	r.Register("check_pvc_in_use", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		name := getString(params, "name", "")
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrBadParams)
		}
		inUse, err := client.PVCInUse(ctx, getString(params, "namespace", ""), name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"in_use": inUse}, nil
	}))

	r.Register("create_pv", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		name := getString(params, "name", "")
		size := getString(params, "size", "")
		if name == "" || size == "" {
			return nil, fmt.Errorf("%w: name and size are required", ErrBadParams)
		}
		volume := getString(params, "volume", name)
		return nil, client.CreatePV(ctx, name, size, volume)
	}))

	r.Register("delete_pv", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		name := getString(params, "name", "")
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrBadParams)
		}
		return nil, client.DeletePV(ctx, name)
	}))

	r.Register("create_pvc", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		name := getString(params, "name", "")
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrBadParams)
		}
		pv := getString(params, "pv", "")
		size := getString(params, "size", "")
		// Пересоздание после неудачного удаления PV несёт параметры
		// внутри spec удалённого claim'а.
		if spec, ok := params["spec"].(map[string]any); ok {
			pv = getString(spec, "pv", pv)
			size = getString(spec, "size", size)
		}
		if pv == "" || size == "" {
			return nil, fmt.Errorf("%w: pv and size are required", ErrBadParams)
		}
		return nil, client.CreatePVC(ctx, getString(params, "namespace", ""), name, pv, size)
	}))

	r.Register("delete_pvc", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		name := getString(params, "name", "")
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrBadParams)
		}
		spec, err := client.DeletePVC(ctx, getString(params, "namespace", ""), name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"spec": spec}, nil
	}))

	r.Register("create_namespace", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		name := getString(params, "name", "")
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrBadParams)
		}
		return nil, client.CreateNamespace(ctx, name)
	}))

	r.Register("delete_namespace", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		name := getString(params, "name", "")
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrBadParams)
		}
		return nil, client.DeleteNamespace(ctx, name)
	}))

	r.Register("deploy_image", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		image := getString(params, "image", "")
		if image == "" {
			return nil, fmt.Errorf("%w: image is required", ErrBadParams)
		}
		namespace := getString(params, "namespace", "default")
		name := getString(params, "name", deploymentName(image))
		return nil, client.SetDeploymentImage(ctx, namespace, name, image)
	}))

	r.Register("delete_image", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		image := getString(params, "image", "")
		if image == "" {
			return nil, fmt.Errorf("%w: image is required", ErrBadParams)
		}
		namespace := getString(params, "namespace", "default")
		name := getString(params, "name", deploymentName(image))
		return nil, client.DeleteDeployment(ctx, namespace, name)
	}))

	r.Register("create_ingress", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		host := getString(params, "domain", "")
		if host == "" {
			return nil, fmt.Errorf("%w: domain is required", ErrBadParams)
		}
		namespace := getString(params, "namespace", "default")
		service := getString(params, "service", host)
		return nil, client.CreateIngress(ctx, namespace, host, service)
	}))

	r.Register("delete_ingress", ActionFunc(func(ctx context.Context, params map[string]any) (map[string]any, error) {
		host := getString(params, "domain", "")
		if host == "" {
			return nil, fmt.Errorf("%w: domain is required", ErrBadParams)
		}
		return nil, client.DeleteIngress(ctx, getString(params, "namespace", "default"), host)
	}))

	r.Register("provision_cluster", scriptAction(scripts.ProvisionCluster))
	r.Register("update_cluster", scriptAction(scripts.UpdateCluster))

	return r
}

// scriptAction запускает локальный provisioning-скрипт хоста.
// Количество узлов передаётся аргументом.
func scriptAction(path string) ActionFunc {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		if path == "" {
			return nil, ErrNotSupported
		}
		nodes := getString(params, "nodes", "")
		cmd := exec.CommandContext(ctx, path, nodes)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("provision script: %w: %s", err, strings.TrimSpace(string(out)))
		}
		return map[string]any{"output": strings.TrimSpace(string(out))}, nil
	}
}

// deploymentName выводит имя deployment'а из образа:
// registry.io/team/web:1.2 → web.
func deploymentName(image string) string {
	name := image
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	return name
}

// getString достаёт строковый параметр; числа приводятся к строке.
func getString(params map[string]any, key, fallback string) string {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case string:
		if v == "" {
			return fallback
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return fallback
	}
}
