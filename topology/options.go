package topology

// UngroupedPolicy 决定未声明 shard_group 的分片如何参与解析
type UngroupedPolicy int

const (
	// UngroupedInvisible 未分组的分片对解析不可见，PrimaryShardsFor("") 总是为空
	UngroupedInvisible UngroupedPolicy = iota
	// UngroupedAsGroup 把所有未分组的主分片视为空字符串命名的分片组
	UngroupedAsGroup
)

// String 返回配置中使用的名称
func (p UngroupedPolicy) String() string {
	switch p {
	case UngroupedAsGroup:
		return "group"
	default:
		return "invisible"
	}
}

// ParseUngroupedPolicy 解析配置值，空字符串视为 invisible
func ParseUngroupedPolicy(s string) (UngroupedPolicy, bool) {
	switch s {
	case "", "invisible":
		return UngroupedInvisible, true
	case "group":
		return UngroupedAsGroup, true
	default:
		return UngroupedInvisible, false
	}
}

type options struct {
	policy UngroupedPolicy
}

// Option 拓扑选项
type Option func(*options)

// WithUngroupedPolicy 设置未分组分片的处理策略，默认 UngroupedInvisible
func WithUngroupedPolicy(p UngroupedPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}
