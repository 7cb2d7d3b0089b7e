package agent

import (
	"context"
	"fmt"
	"os"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// hostPathRoot — корень томов на хосте.
const hostPathRoot = "/data/volumes"

// K8SClient — обёртка над client-go для действий агента.
type K8SClient struct {
	clientset      kubernetes.Interface
	kubeconfigPath string
}

// NewK8SClient создаёт клиент из kubeconfig.
func NewK8SClient(kubeconfigPath string) (*K8SClient, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("build clientset: %w", err)
	}
	return &K8SClient{clientset: clientset, kubeconfigPath: kubeconfigPath}, nil
}

// State собирает снимок состояния кластера: узлы с их готовностью
// и список namespace'ов.
func (c *K8SClient) State(ctx context.Context) (map[string]any, error) {
	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	nodeStates := make([]map[string]any, 0, len(nodes.Items))
	for _, n := range nodes.Items {
		ready := false
		for _, cond := range n.Status.Conditions {
			if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
				ready = true
				break
			}
		}
		nodeStates = append(nodeStates, map[string]any{
			"name":  n.Name,
			"ready": ready,
		})
	}

	namespaces, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	nsNames := make([]string, 0, len(namespaces.Items))
	for _, ns := range namespaces.Items {
		nsNames = append(nsNames, ns.Name)
	}

	return map[string]any{
		"nodes":      nodeStates,
		"namespaces": nsNames,
	}, nil
}

// ResourceNames возвращает имена ресурсов данного вида в namespace.
func (c *K8SClient) ResourceNames(ctx context.Context, kind, namespace string) ([]string, error) {
	switch kind {
	case "pvc":
		list, err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("list pvcs: %w", err)
		}
		names := make([]string, 0, len(list.Items))
		for _, item := range list.Items {
			names = append(names, item.Name)
		}
		return names, nil
	case "pv":
		list, err := c.clientset.CoreV1().PersistentVolumes().List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("list pvs: %w", err)
		}
		names := make([]string, 0, len(list.Items))
		for _, item := range list.Items {
			names = append(names, item.Name)
		}
		return names, nil
	case "namespace":
		list, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("list namespaces: %w", err)
		}
		names := make([]string, 0, len(list.Items))
		for _, item := range list.Items {
			names = append(names, item.Name)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%w: resource kind %q", ErrBadParams, kind)
	}
}

// PVCInUse сообщает, смонтирован ли claim хотя бы одним pod'ом.
func (c *K8SClient) PVCInUse(ctx context.Context, namespace, name string) (bool, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return false, fmt.Errorf("list pods: %w", err)
	}
	for _, pod := range pods.Items {
		for _, vol := range pod.Spec.Volumes {
			if vol.PersistentVolumeClaim != nil && vol.PersistentVolumeClaim.ClaimName == name {
				return true, nil
			}
		}
	}
	return false, nil
}

// Kubeconfig возвращает содержимое kubeconfig хоста.
func (c *K8SClient) Kubeconfig() (string, error) {
	data, err := os.ReadFile(c.kubeconfigPath)
	if err != nil {
		return "", fmt.Errorf("read kubeconfig: %w", err)
	}
	return string(data), nil
}

// CreatePV создаёт hostPath persistent volume.
func (c *K8SClient) CreatePV(ctx context.Context, name, size, volume string) error {
	quantity, err := resource.ParseQuantity(size)
	if err != nil {
		return fmt.Errorf("%w: size %q: %v", ErrBadParams, size, err)
	}

	pv := &corev1.PersistentVolume{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: corev1.PersistentVolumeSpec{
			Capacity: corev1.ResourceList{
				corev1.ResourceStorage: quantity,
			},
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			PersistentVolumeSource: corev1.PersistentVolumeSource{
				HostPath: &corev1.HostPathVolumeSource{
					Path: fmt.Sprintf("%s/%s", hostPathRoot, volume),
				},
			},
		},
	}
	if _, err := c.clientset.CoreV1().PersistentVolumes().Create(ctx, pv, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("create pv: %w", err)
	}
	return nil
}

// DeletePV удаляет persistent volume. Отсутствующий PV — не ошибка.
func (c *K8SClient) DeletePV(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().PersistentVolumes().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete pv: %w", err)
	}
	return nil
}

// CreatePVC создаёт claim, привязанный к конкретному PV.
func (c *K8SClient) CreatePVC(ctx context.Context, namespace, name, pvName, size string) error {
	quantity, err := resource.ParseQuantity(size)
	if err != nil {
		return fmt.Errorf("%w: size %q: %v", ErrBadParams, size, err)
	}

	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			VolumeName:  pvName,
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: quantity,
				},
			},
		},
	}
	if _, err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).Create(ctx, pvc, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("create pvc: %w", err)
	}
	return nil
}

// DeletePVC удаляет claim и возвращает его spec в форме, пригодной
// для пересоздания.
func (c *K8SClient) DeletePVC(ctx context.Context, namespace, name string) (map[string]any, error) {
	pvc, err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get pvc: %w", err)
	}

	spec := map[string]any{
		"pv":   pvc.Spec.VolumeName,
		"size": pvc.Spec.Resources.Requests.Storage().String(),
	}

	if err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return nil, fmt.Errorf("delete pvc: %w", err)
	}
	return spec, nil
}

// CreateNamespace создаёт namespace. Существующий — не ошибка.
func (c *K8SClient) CreateNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	_, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("create namespace: %w", err)
	}
	return nil
}

// DeleteNamespace удаляет namespace. Отсутствующий — не ошибка.
func (c *K8SClient) DeleteNamespace(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete namespace: %w", err)
	}
	return nil
}

// SetDeploymentImage обновляет образ контейнеров deployment'а;
// отсутствующий deployment создаётся с единственным контейнером.
func (c *K8SClient) SetDeploymentImage(ctx context.Context, namespace, name, image string) error {
	deployments := c.clientset.AppsV1().Deployments(namespace)

	existing, err := deployments.Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		for i := range existing.Spec.Template.Spec.Containers {
			existing.Spec.Template.Spec.Containers[i].Image = image
		}
		if _, err := deployments.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("update deployment: %w", err)
		}
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("get deployment: %w", err)
	}

	one := int32(1)
	labels := map[string]string{"app": name}
	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: labels},
		Spec: appsv1.DeploymentSpec{
			Replicas: &one,
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{Name: name, Image: image}},
				},
			},
		},
	}
	if _, err := deployments.Create(ctx, deployment, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("create deployment: %w", err)
	}
	return nil
}

// DeleteDeployment удаляет deployment. Отсутствующий — не ошибка.
func (c *K8SClient) DeleteDeployment(ctx context.Context, namespace, name string) error {
	err := c.clientset.AppsV1().Deployments(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete deployment: %w", err)
	}
	return nil
}

// CreateIngress создаёт ingress-маршрут домена на сервис.
func (c *K8SClient) CreateIngress(ctx context.Context, namespace, host, service string) error {
	pathType := networkingv1.PathTypePrefix
	ingress := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{Name: host, Namespace: namespace},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{{
				Host: host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: service,
									Port: networkingv1.ServiceBackendPort{Number: 80},
								},
							},
						}},
					},
				},
			}},
		},
	}
	if _, err := c.clientset.NetworkingV1().Ingresses(namespace).Create(ctx, ingress, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("create ingress: %w", err)
	}
	return nil
}

// DeleteIngress удаляет ingress. Отсутствующий — не ошибка.
func (c *K8SClient) DeleteIngress(ctx context.Context, namespace, host string) error {
	err := c.clientset.NetworkingV1().Ingresses(namespace).Delete(ctx, host, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete ingress: %w", err)
	}
	return nil
}
