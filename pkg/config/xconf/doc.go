// Package xconf 加载 xtail 的配置文件，基于 koanf 实现。
//
// # 格式
//
//   - YAML（推荐）：.yaml, .yml
//   - JSON：.json
//
// 未出现在文件中的字段保留 [Default] 的值，加载后统一执行 Validate。
//
//	sampling:
//	  policy: error_or_duration
//	  head_rate: 1.0
//	  head_keys: [tenant.id]  # 多个 key 按 head_combine (any/all) 组合
//	  tail_rate: 1.0
//	  background_rate: 0.01
//	  level_threshold: notice
//	  duration_threshold: 5s
//	decision_cache:
//	  kept: 65536
//	  dropped: 0
//	log:
//	  level: info
//	  format: text
//
// # 转换
//
// [Config.SamplingOptions] 与 [Config.ProcessorOptions] 把配置转换为
// xtailsample 的构建参数，[LogConfig.Builder] 转换为 xlog.Builder。
//
// # 热重载
//
// [Watch] 基于 fsnotify 监视配置文件所在目录，内置防抖，变更后重新加载并
// 通过回调交付新配置。只有尾部策略适合热更新，缓存容量等参数仅在创建
// 处理器时生效。
package xconf
